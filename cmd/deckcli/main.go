// Command deckcli is a line-oriented deck builder. It searches the catalog
// through the ygodeck API, enforces deck rules while cards are added, and
// saves the result to the caller's account.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"ygodeck/internal/apiclient"
	"ygodeck/internal/catalog"
	"ygodeck/internal/deck"
	"ygodeck/internal/deckbuilder"
	"ygodeck/internal/logging"
	"ygodeck/internal/search"
)

const help = `commands:
  login <username|email> <password>
  find <name>                  set the name term (empty clears it)
  set <field> <value>          field: type attribute race level atk def
  unset <field>
  page <n>
  add <n>                      add result n to the deck
  rm <card id> [main|extra]
  forbidden on|off
  show
  save <name>                  create, or update the loaded deck
  decks
  load <deck id>
  quit`

type session struct {
	api   *apiclient.Client
	sched *search.Scheduler
	out   io.Writer

	mu      sync.Mutex
	query   search.Query
	results []catalog.Card
	draft   deckbuilder.Draft
	deckID  uint
}

func main() {
	apiURL := flag.String("api", "http://localhost:8080/api", "ygodeck API base URL")
	debug := flag.Bool("debug", false, "Log scheduler activity as JSON")
	flag.Parse()

	logger := logging.NewNop()
	if *debug {
		logger = logging.NewJSON(logging.LevelDebug)
	}

	s := &session{
		api: apiclient.New(*apiURL, nil),
		out: os.Stdout,
	}
	s.sched = search.NewScheduler(
		search.CatalogFetcher{Search: s.api.SearchCards},
		s.show,
		search.Options{Logger: logger},
	)
	defer s.sched.Close()

	fmt.Fprintln(s.out, help)
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Fprint(s.out, "> "); scanner.Scan(); fmt.Fprint(s.out, "> ") {
		if !s.exec(strings.TrimSpace(scanner.Text())) {
			return
		}
	}
}

// show receives search results from the scheduler.
func (s *session) show(r search.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = r.Cards
	switch {
	case r.Failure != nil:
		fmt.Fprintf(s.out, "\n%s\n", r.Failure.Message)
	case len(r.Cards) == 0:
		fmt.Fprintln(s.out, "\nNo cards found.")
	}
	if r.Notice != "" {
		fmt.Fprintf(s.out, "\n(%s)\n", r.Notice)
	}
	for i, c := range r.Cards {
		fmt.Fprintf(s.out, "%3d  %-40s %-28s %s%s\n", i+1, c.Name, c.Type, stats(c), banTag(c.BanStatus))
	}
}

func (s *session) exec(line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit":
		return false
	case "help":
		fmt.Fprintln(s.out, help)
	case "login":
		user, pass, _ := strings.Cut(arg, " ")
		sess, err := s.api.Login(ctx, user, strings.TrimSpace(pass))
		if err != nil {
			s.errorf("login failed: %v", err)
			return true
		}
		fmt.Fprintf(s.out, "logged in as %s\n", sess.Username)
	case "find":
		s.edit(func(q *search.Query) { q.Name = arg; q.Page = 0 })
	case "set", "unset":
		field, value, _ := strings.Cut(arg, " ")
		if strings.EqualFold(cmd, "unset") {
			value = ""
		}
		if !s.setField(field, strings.TrimSpace(value)) {
			s.errorf("unknown field %q", field)
		}
	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			s.errorf("page must be a positive number")
			return true
		}
		s.edit(func(q *search.Query) { q.Page = n - 1 })
	case "add":
		s.add(arg)
	case "rm":
		s.remove(arg)
	case "forbidden":
		s.mu.Lock()
		s.draft.SetIncludeForbidden(arg == "on")
		s.mu.Unlock()
		fmt.Fprintf(s.out, "forbidden cards %s\n", map[bool]string{true: "allowed", false: "excluded"}[arg == "on"])
	case "show":
		s.printDraft()
	case "save":
		s.save(ctx, arg)
	case "decks":
		s.listDecks(ctx)
	case "load":
		s.load(ctx, arg)
	default:
		s.errorf("unknown command %q, try help", cmd)
	}
	return true
}

func (s *session) edit(fn func(*search.Query)) {
	s.mu.Lock()
	fn(&s.query)
	q := s.query
	s.mu.Unlock()
	s.sched.Update(q)
}

func (s *session) setField(field, value string) bool {
	var target func(*search.Query) *string
	switch strings.ToLower(field) {
	case "type":
		target = func(q *search.Query) *string { return &q.Type }
	case "attribute":
		target = func(q *search.Query) *string { return &q.Attribute }
	case "race":
		target = func(q *search.Query) *string { return &q.Race }
	case "level":
		target = func(q *search.Query) *string { return &q.Level }
	case "atk":
		target = func(q *search.Query) *string { return &q.Atk }
	case "def":
		target = func(q *search.Query) *string { return &q.Def }
	default:
		return false
	}
	s.edit(func(q *search.Query) {
		*target(q) = value
		q.Page = 0
	})
	return true
}

func (s *session) add(arg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(s.results) {
		s.errorf("pick a result between 1 and %d", len(s.results))
		return
	}
	card := s.results[n-1]
	if err := s.draft.Add(card); err != nil {
		s.errorf("%v", err)
		return
	}
	main, extra := s.draft.Totals()
	fmt.Fprintf(s.out, "added %s (main %d, extra %d)\n", card.Name, main, extra)
}

func (s *session) remove(arg string) {
	idArg, sectionArg, _ := strings.Cut(arg, " ")
	id, err := strconv.Atoi(idArg)
	if err != nil {
		s.errorf("card id must be a number")
		return
	}
	section := deck.Main
	if sectionArg != "" {
		var ok bool
		if section, ok = deck.ParseSection(sectionArg); !ok {
			s.errorf("section must be main or extra")
			return
		}
	}
	s.mu.Lock()
	s.draft.Remove(id, section)
	s.mu.Unlock()
}

func (s *session) printDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()

	main, extra := s.draft.Totals()
	fmt.Fprintf(s.out, "Main deck (%d/%d-%d)\n", main, deck.MainMin, deck.MainMax)
	for _, it := range s.draft.Main {
		fmt.Fprintf(s.out, "  %dx %-40s %d%s\n", it.Count, it.Card.Name, it.Card.ID, banTag(it.Card.BanStatus))
	}
	fmt.Fprintf(s.out, "Extra deck (%d/%d)\n", extra, deck.ExtraMax)
	for _, it := range s.draft.Extra {
		fmt.Fprintf(s.out, "  %dx %-40s %d%s\n", it.Count, it.Card.Name, it.Card.ID, banTag(it.Card.BanStatus))
	}
}

func (s *session) save(ctx context.Context, name string) {
	s.mu.Lock()
	sub := s.draft.Submission(name)
	id := s.deckID
	s.mu.Unlock()

	if err := deck.Validate(sub); err != nil {
		s.errorf("not saved: %v", err)
		return
	}

	var (
		saved *apiclient.Deck
		err   error
	)
	if id == 0 {
		saved, err = s.api.CreateDeck(ctx, sub)
	} else {
		saved, err = s.api.UpdateDeck(ctx, id, sub)
	}
	if err != nil {
		s.errorf("save failed: %v", err)
		return
	}

	s.mu.Lock()
	s.deckID = saved.ID
	s.mu.Unlock()
	fmt.Fprintf(s.out, "saved %q as deck %d\n", saved.Name, saved.ID)
}

func (s *session) listDecks(ctx context.Context) {
	decks, err := s.api.ListDecks(ctx)
	if err != nil {
		s.errorf("list failed: %v", err)
		return
	}
	for _, d := range decks {
		fmt.Fprintf(s.out, "%4d  %-40s main %d  extra %d  updated %s\n",
			d.ID, d.Name, d.MainCount, d.ExtraCount, d.UpdatedAt.Format(time.DateTime))
	}
}

func (s *session) load(ctx context.Context, arg string) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		s.errorf("deck id must be a number")
		return
	}
	saved, err := s.api.GetDeck(ctx, uint(id))
	if err != nil {
		s.errorf("load failed: %v", err)
		return
	}

	ids := make([]int, 0, len(saved.MainDeck)+len(saved.ExtraDeck))
	for _, e := range append(append([]deck.Entry{}, saved.MainDeck...), saved.ExtraDeck...) {
		ids = append(ids, e.ID)
	}
	cards := make(map[int]catalog.Card, len(ids))
	if len(ids) > 0 {
		found, err := s.api.SearchCards(ctx, catalog.Filter{IDs: ids})
		if err != nil {
			s.errorf("card lookup failed: %v", err)
			return
		}
		for _, c := range found {
			cards[c.ID] = c
		}
	}

	s.mu.Lock()
	missing := s.draft.Load(saved.MainDeck, saved.ExtraDeck, cards)
	s.deckID = saved.ID
	s.mu.Unlock()

	if len(missing) > 0 {
		s.errorf("%d cards are no longer in the catalog: %v", len(missing), missing)
	}
	fmt.Fprintf(s.out, "loaded %q\n", saved.Name)
	s.printDraft()
}

func (s *session) errorf(format string, args ...any) {
	fmt.Fprintf(s.out, "! "+format+"\n", args...)
}

func stats(c catalog.Card) string {
	if c.Atk == nil && c.Def == nil {
		return ""
	}
	val := func(p *int) string {
		if p == nil {
			return "?"
		}
		return strconv.Itoa(*p)
	}
	return fmt.Sprintf("%s/%s", val(c.Atk), val(c.Def))
}

func banTag(status deck.BanStatus) string {
	if status == "" || status == deck.Unlimited {
		return ""
	}
	return " [" + string(status) + "]"
}
