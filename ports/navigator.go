package ports

// Navigator performs the one-way redirect to the authentication entry point
// after a terminal refresh failure.
type Navigator interface {
	Redirect(path string)
}
