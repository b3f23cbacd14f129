package repoargs

type RepositoryName string

const (
	UserRepoName       RepositoryName = "user"
	AccountRepoName    RepositoryName = "account"
	LedgerRepoName     RepositoryName = "ledger"
	AuctionRepoName    RepositoryName = "auction"
	BidRepoName        RepositoryName = "bid"
	TransitionRepoName RepositoryName = "auction_transition"
)

// Page параметры постраничной выдачи.
type Page struct {
	Limit  uint
	Offset uint
}
