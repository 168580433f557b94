package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"minifeed/domain/feed"
	"minifeed/domain/user"
)

const timeLayout = "2006-01-02 15:04"

func renderSnapshot(w io.Writer, snap feed.Snapshot, names map[int64]string, limit int) {
	bold := color.New(color.Bold)

	switch snap.Phase {
	case feed.PhaseLoading:
		fmt.Fprintln(w, "Loading...")
		return
	case feed.PhaseError:
		color.New(color.FgRed).Fprintf(w, "Could not load your feed: %s\n", snap.Error)
		fmt.Fprintln(w, "Run the command again to retry.")
	}

	bold.Fprintln(w, "Home")
	if snap.IsEmpty() {
		fmt.Fprintln(w, "  Your feed is empty. Follow people to see their posts here.")
	}
	for _, p := range snap.Posts {
		author, ok := names[p.AuthorId]
		if !ok {
			author = fmt.Sprintf("user %d", p.AuthorId)
		}
		color.New(color.FgHiBlack).Fprintf(w, "  %s  %s\n", p.CreatedAt.Local().Format(timeLayout), author)
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(p.Content, "\n", "\n    "))
	}

	suggestions := snap.Discover(limit)
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(w)
	bold.Fprintln(w, "Discover People")
	for _, s := range suggestions {
		label := color.New(color.FgCyan).Sprint("[Follow]")
		if s.Following {
			label = color.New(color.FgGreen).Sprint("[Following]")
		}
		fmt.Fprintf(w, "  %-12s %s  %s (id %d)\n", label, s.User.DisplayName, handle(s.User), s.User.Id)
	}
}

func renderUsers(w io.Writer, title string, users []user.User) {
	color.New(color.Bold).Fprintf(w, "%s (%d)\n", title, len(users))
	for _, u := range users {
		fmt.Fprintf(w, "  %s  %s (id %d)\n", u.DisplayName, handle(u), u.Id)
	}
}

func handle(u user.User) string {
	if h := u.Handle(); h != "" {
		return "@" + h
	}
	return ""
}

func displayNames(users []user.User) map[int64]string {
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.Id] = u.DisplayName
	}
	return names
}
