// Command browse follows authors and prints their timelines from the terminal,
// keeping the same client-side cache a browser session would.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/charmbracelet/log"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"
	"weibo_relay/client"
	"weibo_relay/dal"
	"weibo_relay/dto"
	"weibo_relay/feed"
	"weibo_relay/shared"
	"weibo_relay/store"
)

const usage = `usage: browse <command> [args]

commands:
  follow <id>                  follow an author
  unfollow <id>                stop following an author and drop its cached data
  switch <id>                  select a followed author
  list                         list followed authors
  refresh [-page n] [-pages n] fetch the selected author's profile and timeline
  show                         print the selected author's cached profile
  cache                        list persisted cache entries
`

var errUsage = errors.New("invalid arguments")

type browser struct {
	out       io.Writer
	repo      dal.IRepo
	store     *store.Store
	client    client.IClient
	refresher *feed.Refresher
}

func main() {
	cfg := shared.LoadConfig()

	logger := log.New(os.Stderr)
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat("2006-01-02 15:04:05.000")
	switch cfg.LogLevel {
	case "Debug":
		logger.SetLevel(log.DebugLevel)
	case "Info":
		logger.SetLevel(log.InfoLevel)
	default:
		// Refresh failures are reported on stderr either way
		logger.SetLevel(log.ErrorLevel)
	}

	repo := dal.NewRepo(cfg, logger)
	repo.InitUpdateDb()
	defer repo.Close()

	st := store.NewStore(logger, repo, store.NewMemoryKV())
	cl := client.NewClient(client.ConfigFrom(cfg), shared.NewUserAgent(cfg), nil)
	b := &browser{
		out:       os.Stdout,
		repo:      repo,
		store:     st,
		client:    cl,
		refresher: feed.NewRefresher(logger, cl, st),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := b.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		stop()
		repo.Close()
		os.Exit(1)
	}
}

func (b *browser) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "follow", "unfollow", "switch":
		if len(args) != 1 {
			return fmt.Errorf("%s needs exactly one author id: %w", cmd, errUsage)
		}
		id, err := dto.ParseAuthorId(args[0])
		if err != nil {
			return err
		}
		switch cmd {
		case "follow":
			b.store.AddAuthor(id)
		case "unfollow":
			b.store.RemoveAuthor(id)
		default:
			if !b.isFollowed(id) {
				return fmt.Errorf("not following %v", id)
			}
			b.store.SwitchCurrent(id)
		}
		b.list()
		return nil
	case "list":
		b.list()
		return nil
	case "refresh":
		return b.refresh(ctx, args)
	case "show":
		return b.show()
	case "cache":
		return b.cache()
	}
	return fmt.Errorf("unknown command '%s': %w", cmd, errUsage)
}

func (b *browser) isFollowed(id dto.AuthorId) bool {
	for _, followed := range b.store.AuthorIds() {
		if followed == id {
			return true
		}
	}
	return false
}

func (b *browser) list() {
	ids := b.store.AuthorIds()
	if len(ids) == 0 {
		fmt.Fprintln(b.out, "Not following anyone.")
		return
	}
	current, _ := b.store.Current()
	profiles := b.store.Profiles()
	for _, id := range ids {
		marker := " "
		if id == current {
			marker = "*"
		}
		name := ""
		if profile, ok := profiles[id]; ok {
			name = profile.ScreenName
		}
		fmt.Fprintf(b.out, "%s %-12v %s\n", marker, id, name)
	}
}

func (b *browser) refresh(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("refresh", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	page := flags.Int("page", 1, "first timeline page to fetch")
	pages := flags.Int("pages", 1, "number of timeline pages to fetch")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	res, err := b.refresher.RefreshCurrent(ctx, *page, *pages)
	if err != nil {
		return err
	}
	b.printProfile(res.Profile)
	if !res.Changed {
		fmt.Fprintln(b.out, "(timeline unchanged)")
	}
	b.printCards(res.Cards)
	return nil
}

func (b *browser) show() error {
	profile, ok := b.store.CurrentProfile()
	if !ok {
		if _, hasCurrent := b.store.Current(); !hasCurrent {
			return feed.ErrNoCurrentAuthor
		}
		fmt.Fprintln(b.out, "No cached profile; run refresh first.")
		return nil
	}
	b.printProfile(profile)
	current, _ := b.store.Current()
	b.printCards(b.store.GetTimeline(current))
	return nil
}

func (b *browser) cache() error {
	entries, err := b.repo.ListValues()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintf(b.out, "%-24s %6d bytes  %s\n", entry.Key, len(entry.Val), entry.UpdatedAt.Format(time.DateTime))
	}
	return nil
}

func (b *browser) printProfile(profile *dto.Profile) {
	profile = feed.ProxyProfileImages(profile, b.client)
	fmt.Fprintf(b.out, "%s (%d)\n", profile.ScreenName, profile.Id)
	if profile.Description != "" {
		fmt.Fprintf(b.out, "  %s\n", shared.TruncateWithEllipsis(profile.Description, shared.MaxDescriptionLen))
	}
	fmt.Fprintf(b.out, "  following %s, followers %s, posts %s\n",
		profile.FollowCount, profile.FollowersCount, profile.StatusesCount)
	if profile.AvatarHd != "" {
		fmt.Fprintf(b.out, "  avatar: %s\n", profile.AvatarHd)
	}
}

func (b *browser) printCards(cards []dto.Card) {
	for _, card := range feed.ProxyCardImages(cards, b.client) {
		post := card.Mblog
		if post == nil {
			continue
		}
		when := post.CreatedAt
		if created, err := post.CreatedTime(); err == nil {
			when = created.Format(time.DateTime)
		}
		fmt.Fprintf(b.out, "\n[%s] %s\n", when, post.Bid)
		text := feed.PlainText(post.Text)
		fmt.Fprintln(b.out, "  "+strings.ReplaceAll(text, "\n", "\n  "))
		for _, pic := range post.Pics {
			picUrl := pic.Url
			if pic.Large != nil {
				picUrl = pic.Large.Url
			}
			fmt.Fprintf(b.out, "  pic: %s\n", picUrl)
		}
		fmt.Fprintf(b.out, "  reposts %s, comments %s, likes %s\n",
			post.RepostsCount, post.CommentsCount, post.AttitudesCount)
	}
}
