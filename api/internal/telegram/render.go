package telegram

import (
	"fmt"
	"strings"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/intake"
	"chart-signal/api/internal/service"
	"chart-signal/api/internal/store"
	"chart-signal/api/internal/util"
)

func renderPreview(p intake.Preview, eng analysis.Engine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🖼 Chart received: %s\n", p.String())
	if eng != nil {
		fmt.Fprintf(&b, "Engine: %s (%s)\n", esc(eng.Name()), esc(eng.GetModel()))
	}
	b.WriteString("\nPress *Analyze* to get a signal for the next 1-2 candles.")
	return b.String()
}

func signalIcon(s analysis.Signal) string {
	switch s {
	case analysis.SignalCall:
		return "🟢⬆️"
	case analysis.SignalPut:
		return "🔴⬇️"
	}
	return "⚪️"
}

// renderResult builds the result card: asset header, signal and class,
// confidence, market grid, martingale instruction and a short logic preview.
func renderResult(out service.Outcome) string {
	r := out.Result
	var b strings.Builder

	fmt.Fprintf(&b, "*%s* · %s\n\n", esc(orDash(r.Pair)), esc(orDash(r.Timeframe)))
	fmt.Fprintf(&b, "%s *%s* · %s\n", signalIcon(r.Signal), r.Signal, esc(r.SignalType.Label()))
	fmt.Fprintf(&b, "Confidence: %d%% %s\n\n", r.Confidence, util.Bar(r.Confidence, 10, "▰", "▱"))

	fmt.Fprintf(&b, "Trend: %s\n", r.Trend)
	fmt.Fprintf(&b, "Support: %s\n", esc(orDash(r.Support)))
	fmt.Fprintf(&b, "Resistance: %s\n", esc(orDash(r.Resistance)))
	fmt.Fprintf(&b, "Previous candle: %s\n\n", esc(orDash(r.PreviousCandlePower)))

	fmt.Fprintf(&b, "🛡 %s\n\n", esc(r.MTGInstruction))
	if logic := util.Preview(r.Logic, 2, 220); logic != "" {
		fmt.Fprintf(&b, "🧠 %s\n", esc(logic))
	}
	if len(out.Warnings) > 0 {
		b.WriteString("\n⚠️ _Result departs from the signal protocol:_\n")
		for _, w := range out.Warnings {
			fmt.Fprintf(&b, "• %s\n", esc(w))
		}
	}
	fmt.Fprintf(&b, "\n%s (%s), %.1fs", esc(out.Engine), esc(out.Model), out.Duration.Seconds())
	return b.String()
}

// maxMessageRunes stays under Telegram's 4096 character limit per message.
const maxMessageRunes = 4000

func renderLogic(r analysis.Result) string {
	head := fmt.Sprintf("🧠 *Logic* (%s %s)\n\n", r.Signal, esc(util.ClampRunes(r.Pair, 40)))
	body := esc(orDash(r.Logic))
	budget := maxMessageRunes - len([]rune(head))
	if clamped := util.ClampRunes(body, budget-1); clamped != body {
		// never end on a dangling escape
		body = strings.TrimRight(clamped, "\\") + "…"
	}
	return head + body
}

func renderHistory(entries []store.Entry) string {
	if len(entries) == 0 {
		return "No analyses yet."
	}
	var b strings.Builder
	b.WriteString("*Recent analyses*\n")
	for _, e := range entries {
		when := e.CreatedAt.UTC().Format("01-02 15:04")
		if e.Result == nil {
			fmt.Fprintf(&b, "%s ❌ failed (%s)\n", when, esc(e.Engine))
			continue
		}
		r := e.Result
		fmt.Fprintf(&b, "%s %s %s %s · %s %d%%\n", when, signalIcon(r.Signal),
			esc(orDash(r.Pair)), esc(orDash(r.Timeframe)), r.Signal, r.Confidence)
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
