// Package feed ties the client and the cache store together: it refreshes an
// author's cached profile and timeline, and prepares post content for display.
package feed

import (
	"context"
	"errors"
	"fmt"
	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/errgroup"
	"weibo_relay/client"
	"weibo_relay/dto"
	"weibo_relay/shared"
	"weibo_relay/store"
)

var ErrNoCurrentAuthor = errors.New("no author is selected")

type RefreshResult struct {
	AuthorId dto.AuthorId
	Profile  *dto.Profile
	Cards    []dto.Card
	// Pages that came back with cards
	Pages int
	// Whether the timeline differs from what was cached before
	Changed bool
}

type Refresher struct {
	logger shared.ILogger
	client client.IClient
	store  *store.Store
}

func NewRefresher(logger shared.ILogger, cl client.IClient, st *store.Store) *Refresher {
	return &Refresher{
		logger: logger,
		client: cl,
		store:  st,
	}
}

// RefreshCurrent refreshes the selected author.
func (r *Refresher) RefreshCurrent(ctx context.Context, firstPage, pages int) (*RefreshResult, error) {
	id, ok := r.store.Current()
	if !ok {
		return nil, ErrNoCurrentAuthor
	}
	return r.Refresh(ctx, id, firstPage, pages)
}

// Refresh fetches the profile and up to pages timeline pages of id, starting at firstPage,
// and replaces both in the store. Paging stops early at the first empty page.
// Nothing is saved if any fetch fails.
func (r *Refresher) Refresh(ctx context.Context, id dto.AuthorId, firstPage, pages int) (*RefreshResult, error) {
	if firstPage < 1 {
		firstPage = 1
	}
	if pages < 1 {
		pages = 1
	}

	res := RefreshResult{AuthorId: id, Cards: []dto.Card{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := r.client.FetchProfile(gctx, id)
		if err != nil {
			return err
		}
		if resp.Ok != 1 || resp.Data.UserInfo == nil {
			return fmt.Errorf("no profile returned for %v: %s", id, resp.Msg)
		}
		res.Profile = resp.Data.UserInfo
		return nil
	})
	g.Go(func() error {
		for page := firstPage; page < firstPage+pages; page++ {
			resp, err := r.client.FetchTimeline(gctx, id, page)
			if err != nil {
				return err
			}
			if resp.Ok != 1 || len(resp.Data.Cards) == 0 {
				if page == firstPage && resp.Ok != 1 {
					return fmt.Errorf("no timeline returned for %v: %s", id, resp.Msg)
				}
				break
			}
			res.Cards = append(res.Cards, resp.Data.Cards...)
			res.Pages++
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		r.logger.Warnf("Failed to refresh %v: %v", id, err)
		return nil, err
	}

	res.Changed = fingerprint(r.store.GetTimeline(id)) != fingerprint(res.Cards)
	r.store.SaveProfile(id, res.Profile)
	r.store.SaveTimeline(id, res.Cards)
	r.logger.Infof("Refreshed %v: %d cards from %d pages, changed: %v", id, len(res.Cards), res.Pages, res.Changed)
	return &res, nil
}

// fingerprint identifies a card list by its items and the edit state of its posts.
func fingerprint(cards []dto.Card) uint64 {
	hasher := murmur3.New64()
	for _, card := range cards {
		_, _ = hasher.Write([]byte(card.ItemId))
		if card.Mblog != nil {
			_, _ = hasher.Write([]byte("\t" + card.Mblog.Id + "\t" + card.Mblog.Text))
		}
		_, _ = hasher.Write([]byte("\n"))
	}
	return hasher.Sum64()
}
