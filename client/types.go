package client

import (
	"time"

	"github.com/shopspring/decimal"
)

// Problem is a posted problem looking for solution proposals.
type Problem struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Requirements []string        `json:"requirements"`
	Category     string          `json:"category"`
	Budget       string          `json:"budget"`
	BudgetValue  decimal.Decimal `json:"budgetValue"`
	Upvotes      int             `json:"upvotes"`
	Proposals    int             `json:"proposals"`
	Author       string          `json:"author"`
	AuthorID     string          `json:"authorId"`
	Deadline     string          `json:"deadline,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Categories the API accepts for problems.
var Categories = []string{"AI/ML", "Web3", "Finance", "Governance", "Trading", "Infrastructure"}

// CreateProblemInput is the payload for creating or updating a problem.
type CreateProblemInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements,omitempty"`
	Category     string   `json:"category"`
	Budget       string   `json:"budget"`
	Author       string   `json:"author,omitempty"`
	Deadline     string   `json:"deadline,omitempty"`
}

// Proposal is a builder's response to a problem.
type Proposal struct {
	ID            string    `json:"id"`
	ProblemID     string    `json:"problemId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ProjectURL    string    `json:"projectUrl,omitempty"`
	BuilderID     string    `json:"builderId"`
	BuilderName   string    `json:"builderName"`
	BriefSolution string    `json:"briefSolution,omitempty"`
	Timeline      string    `json:"timeline,omitempty"`
	Cost          string    `json:"cost,omitempty"`
	Expertise     []string  `json:"expertise,omitempty"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateProposalInput is the payload for submitting a proposal.
type CreateProposalInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ProjectURL    string   `json:"projectUrl,omitempty"`
	BuilderName   string   `json:"builderName,omitempty"`
	BriefSolution string   `json:"briefSolution,omitempty"`
	Timeline      string   `json:"timeline,omitempty"`
	Cost          string   `json:"cost,omitempty"`
	Expertise     []string `json:"expertise,omitempty"`
}

// Tip is a payment from a client to a builder for a proposal.
type Tip struct {
	ID         string          `json:"id"`
	ProposalID string          `json:"proposalId"`
	BuilderID  string          `json:"builderId"`
	TipperID   string          `json:"tipperId"`
	Amount     decimal.Decimal `json:"amount"`
	Message    string          `json:"message,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// TipInput is the payload for tipping a builder.
type TipInput struct {
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message,omitempty"`
}

// LeaderboardEntry ranks a builder by reputation.
type LeaderboardEntry struct {
	Rank               int             `json:"rank"`
	BuilderID          string          `json:"builderId"`
	BuilderName        string          `json:"builderName"`
	ProposalsSubmitted int             `json:"proposalsSubmitted"`
	ProposalsAccepted  int             `json:"proposalsAccepted"`
	TipsReceived       decimal.Decimal `json:"tipsReceived"`
	ReputationScore    int             `json:"reputationScore"`
	Tier               string          `json:"tier"`
}

// Wallet is a payout wallet registered by a builder.
type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Address   string    `json:"address"`
	Chain     string    `json:"chain"`
	CreatedAt time.Time `json:"createdAt"`
}
