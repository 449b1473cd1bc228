package repository

import (
	"fmt"
	"time"

	"subbets/domain/entities"
	"subbets/domain/interfaces"
)

// keyspace builds the subreddit-scoped Redis keys. Every record the engine
// touches lives under exactly one of these shapes; the watch set maps onto
// them one to one.
type keyspace struct {
	subreddit string
}

func newKeyspace(subreddit string) keyspace {
	return keyspace{subreddit: subreddit}
}

func (k keyspace) market(id entities.MarketID) string {
	return fmt.Sprintf("market:%s:%s", k.subreddit, id)
}

// marketsAll indexes market ids by creation time.
func (k keyspace) marketsAll() string {
	return fmt.Sprintf("markets:%s:all", k.subreddit)
}

// marketsOpen holds the ids of currently open markets.
func (k keyspace) marketsOpen() string {
	return fmt.Sprintf("markets:%s:open", k.subreddit)
}

func (k keyspace) bet(id entities.BetID) string {
	return fmt.Sprintf("bet:%s:%s", k.subreddit, id)
}

func (k keyspace) marketBets(marketID entities.MarketID) string {
	return fmt.Sprintf("bets:market:%s:%s", k.subreddit, marketID)
}

func (k keyspace) userBets(userID entities.UserID) string {
	return fmt.Sprintf("bets:user:%s:%s", k.subreddit, userID)
}

// betPointer is the one-active-bet-per-user-per-market pointer.
func (k keyspace) betPointer(userID entities.UserID, marketID entities.MarketID) string {
	return fmt.Sprintf("betptr:%s:%s:%s", k.subreddit, userID, marketID)
}

func (k keyspace) balance(userID entities.UserID) string {
	return fmt.Sprintf("balance:%s:%s", k.subreddit, userID)
}

func (k keyspace) ledger(userID entities.UserID) string {
	return fmt.Sprintf("ledger:%s:%s", k.subreddit, userID)
}

func (k keyspace) leaderboard(window entities.Window, now time.Time) string {
	return fmt.Sprintf("leaderboard:%s:%s", k.subreddit, window.Bucket(now))
}

func (k keyspace) leaderboardMeta(window entities.Window, now time.Time) string {
	return fmt.Sprintf("lbmeta:%s:%s", k.subreddit, window.Bucket(now))
}

func (k keyspace) audit() string {
	return fmt.Sprintf("audit:%s", k.subreddit)
}

// watchKeys translates a domain watch set into the concrete keys to WATCH.
func (k keyspace) watchKeys(set interfaces.WatchSet) []string {
	var keys []string
	for _, id := range set.Markets {
		keys = append(keys, k.market(id))
	}
	for _, id := range set.MarketBets {
		keys = append(keys, k.marketBets(id))
	}
	for _, id := range set.Bets {
		keys = append(keys, k.bet(id))
	}
	for _, id := range set.Balances {
		keys = append(keys, k.balance(id))
	}
	for _, p := range set.Pointers {
		keys = append(keys, k.betPointer(p.UserID, p.MarketID))
	}
	if set.OpenMarkets {
		keys = append(keys, k.marketsOpen())
	}
	return keys
}
