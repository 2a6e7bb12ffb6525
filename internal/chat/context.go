package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"garagist/internal/ai"
	"garagist/internal/cars"
	"garagist/internal/complaints"
)

const (
	// bounds on what goes into a model prompt
	historyComplaintLimit = 5
	bundleTurnLimit       = 10
	replayTurnLimit       = 15

	historyTextComplaintLimit = 10

	historyTextLen = 200

	noHistorySentinel = "No previous complaints on record for this vehicle."
)

// ComplaintSnapshot is the read-only projection of the complaint under
// discussion.
type ComplaintSnapshot struct {
	Category   string
	Confidence float64
	Crash      bool
	Fire       bool
	Critical   bool
	Status     string
	Submitted  string
	Text       string
}

// HistoryEntry is one prior complaint, bounded for prompt use.
type HistoryEntry struct {
	Date     string
	Category string
	Text     string
	Crash    bool
	Fire     bool
}

// RecurringIssue is a category seen more than once on the same vehicle.
type RecurringIssue struct {
	Category string
	Count    int
	First    time.Time
	Last     time.Time
}

// TurnView is a turn reduced to what the model needs.
type TurnView struct {
	Role    ai.Role
	Content string
}

// ContextBundle is the aggregated, bounded snapshot of vehicle, complaint
// and conversation data prepared for a model call.
type ContextBundle struct {
	Vehicle   cars.Summary
	Current   ComplaintSnapshot
	History   []HistoryEntry
	Recurring []RecurringIssue
	Turns     []TurnView
}

// Aggregator builds context bundles from the external store. It only ever
// reads vehicle and complaint data; the single thing the pipeline writes
// is the assistant turn appended by the relay.
type Aggregator struct {
	vehicles   VehicleReader
	complaints ComplaintReader
	turns      Repo
}

func NewAggregator(vehicles VehicleReader, cr ComplaintReader, turns Repo) *Aggregator {
	return &Aggregator{vehicles: vehicles, complaints: cr, turns: turns}
}

// Build assembles the bundle for a session. turnLimit bounds the
// conversation view; <= 0 means the default.
func (a *Aggregator) Build(ctx context.Context, s *Session, turnLimit int) (*ContextBundle, error) {
	if turnLimit <= 0 {
		turnLimit = bundleTurnLimit
	}

	current, err := a.complaints.Get(ctx, s.ComplaintID)
	if err != nil {
		return nil, fmt.Errorf("load current complaint: %w", err)
	}

	summary, err := a.vehicles.Summary(ctx, current.CarID)
	if err != nil {
		return nil, fmt.Errorf("load vehicle summary: %w", err)
	}

	history, err := a.complaints.ListByCar(ctx, current.CarID, current.ID, historyComplaintLimit)
	if err != nil {
		return nil, fmt.Errorf("load complaint history: %w", err)
	}

	all, err := a.complaints.ListByCar(ctx, current.CarID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load complaints for recurrence: %w", err)
	}

	turns, err := a.turns.ListTurns(ctx, s.ID, turnLimit)
	if err != nil {
		return nil, fmt.Errorf("load conversation turns: %w", err)
	}

	b := &ContextBundle{
		Vehicle: *summary,
		Current: ComplaintSnapshot{
			Category:   current.Category.Display(),
			Confidence: current.Confidence,
			Crash:      current.Crash,
			Fire:       current.Fire,
			Critical:   current.Critical(),
			Status:     current.Status.Display(),
			Submitted:  complaints.FormatDate(current.CreatedAt),
			Text:       current.Text,
		},
		Recurring: recurringIssues(all),
	}
	for i := range history {
		c := &history[i]
		b.History = append(b.History, HistoryEntry{
			Date:     complaints.FormatDate(c.CreatedAt),
			Category: c.Category.Display(),
			Text:     truncate(c.Text, historyTextLen),
			Crash:    c.Crash,
			Fire:     c.Fire,
		})
	}
	for _, t := range turns {
		b.Turns = append(b.Turns, TurnView{Role: t.Role, Content: t.Text})
	}
	return b, nil
}

// recurringIssues groups complaints by category; a category counts as
// recurring when it occurs more than once. Ordered by descending count,
// category name breaking ties.
func recurringIssues(all []complaints.Complaint) []RecurringIssue {
	byCategory := map[complaints.Category]*RecurringIssue{}
	for i := range all {
		c := &all[i]
		issue, ok := byCategory[c.Category]
		if !ok {
			issue = &RecurringIssue{
				Category: c.Category.Display(),
				First:    c.CreatedAt,
				Last:     c.CreatedAt,
			}
			byCategory[c.Category] = issue
		}
		issue.Count++
		if c.CreatedAt.Before(issue.First) {
			issue.First = c.CreatedAt
		}
		if c.CreatedAt.After(issue.Last) {
			issue.Last = c.CreatedAt
		}
	}

	var out []RecurringIssue
	for _, issue := range byCategory {
		if issue.Count > 1 {
			out = append(out, *issue)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Render serializes the bundle into the sectioned text block the model
// receives as its second system message.
func (b *ContextBundle) Render() string {
	divider := strings.Repeat("=", 70)
	var lines []string

	lines = append(lines,
		divider,
		"VEHICLE INFORMATION",
		divider,
		fmt.Sprintf("Vehicle: %s", b.Vehicle.DisplayName),
		fmt.Sprintf("License Plate: %s", b.Vehicle.LicensePlate),
		fmt.Sprintf("Mileage: %d km", b.Vehicle.Mileage),
		fmt.Sprintf("Total Complaints on Record: %d", b.Vehicle.TotalComplaints),
		"",
		divider,
		"CURRENT COMPLAINT (WHAT THEY'RE ASKING ABOUT NOW)",
		divider,
		fmt.Sprintf("Category: %s", b.Current.Category),
		fmt.Sprintf("ML Confidence: %.1f%%", b.Current.Confidence*100),
		fmt.Sprintf("Status: %s", b.Current.Status),
		fmt.Sprintf("Submitted: %s", b.Current.Submitted),
	)

	if b.Current.Crash {
		lines = append(lines, "CRITICAL: This complaint involves a CRASH")
	}
	if b.Current.Fire {
		lines = append(lines, "CRITICAL: This complaint involves a FIRE")
	}

	lines = append(lines,
		"",
		"Customer's Description:",
		b.Current.Text,
		"",
		divider,
	)

	if len(b.Recurring) > 0 {
		lines = append(lines, "", "RECURRING ISSUES DETECTED:")
		for _, issue := range b.Recurring {
			lines = append(lines, fmt.Sprintf(
				"  - %s: Occurred %d times (First: %s, Latest: %s)",
				issue.Category, issue.Count,
				issue.First.Format("2006-01-02"), issue.Last.Format("2006-01-02"),
			))
		}
		lines = append(lines, "")
	}

	lines = append(lines, divider, "HISTORICAL COMPLAINTS", divider)
	if len(b.History) == 0 {
		lines = append(lines, noHistorySentinel)
	} else {
		for i, entry := range b.History {
			lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, entry.Date, entry.Category))
			if flags := severityFlags(entry.Crash, entry.Fire); flags != "" {
				lines = append(lines, "   "+flags)
			}
			lines = append(lines, fmt.Sprintf("   Description: %s", entry.Text))
		}
	}

	lines = append(lines, divider)
	return strings.Join(lines, "\n")
}

// VehicleHistoryText renders a car's standalone complaint history for
// prompt use, independent of any session.
func (a *Aggregator) VehicleHistoryText(ctx context.Context, carID int64) (string, error) {
	summary, err := a.vehicles.Summary(ctx, carID)
	if err != nil {
		return "", fmt.Errorf("load vehicle summary: %w", err)
	}

	all, err := a.complaints.ListByCar(ctx, carID, 0, 0)
	if err != nil {
		return "", fmt.Errorf("load complaints: %w", err)
	}
	if len(all) == 0 {
		return fmt.Sprintf("No previous complaints for this %s.", summary.DisplayName), nil
	}

	lines := []string{
		fmt.Sprintf("=== Vehicle History: %s ===", summary.DisplayName),
		fmt.Sprintf("License Plate: %s", summary.LicensePlate),
		fmt.Sprintf("Total Complaints: %d", len(all)),
	}

	if recurring := recurringIssues(all); len(recurring) > 0 {
		lines = append(lines, "", "RECURRING ISSUES DETECTED:")
		for _, issue := range recurring {
			lines = append(lines, fmt.Sprintf(
				"  - %s: %d times (first: %s, latest: %s)",
				issue.Category, issue.Count,
				issue.First.Format("2006-01-02"), issue.Last.Format("2006-01-02"),
			))
		}
	}

	lines = append(lines, "", "Previous Issues:")
	shown := all
	if len(shown) > historyTextComplaintLimit {
		shown = shown[:historyTextComplaintLimit]
	}
	for i := range shown {
		c := &shown[i]
		lines = append(lines, fmt.Sprintf("%d. [%s] %s",
			i+1, c.CreatedAt.Format("2006-01-02 15:04"), c.Category.Display()))
		if flags := severityFlags(c.Crash, c.Fire); flags != "" {
			lines = append(lines, "   "+flags)
		}
		lines = append(lines, "   "+truncate(c.Text, historyTextLen))
	}
	if len(all) > historyTextComplaintLimit {
		lines = append(lines, fmt.Sprintf("... and %d more complaints", len(all)-historyTextComplaintLimit))
	}

	return strings.Join(lines, "\n"), nil
}

func severityFlags(crash, fire bool) string {
	var flags []string
	if crash {
		flags = append(flags, "CRASH")
	}
	if fire {
		flags = append(flags, "FIRE")
	}
	return strings.Join(flags, " ")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
