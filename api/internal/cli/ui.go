package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/service"
	"chart-signal/api/internal/util"
)

const panelWidth = 64

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(panelWidth)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			Padding(0, 2).
			Width(panelWidth)

	signalColors = map[analysis.Signal]lipgloss.Color{
		analysis.SignalCall:    lipgloss.Color("#10B981"),
		analysis.SignalPut:     lipgloss.Color("#EF4444"),
		analysis.SignalNeutral: lipgloss.Color("#6B7280"),
	}

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#111827")).
			Background(lipgloss.Color("#F59E0B")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	cellStyle = lipgloss.NewStyle().
			Width(panelWidth / 4).
			PaddingRight(1)

	mtgStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F59E0B")).
			Padding(0, 2).
			Width(panelWidth)

	logicStyle = lipgloss.NewStyle().
			Italic(true).
			Width(panelWidth).
			PaddingLeft(2)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

// RenderResult lays out one outcome as stacked panels: asset header, signal
// card, market grid, martingale instruction, logic and warnings.
func RenderResult(out service.Outcome, fullLogic bool) string {
	r := out.Result
	color, ok := signalColors[r.Signal]
	if !ok {
		color = signalColors[analysis.SignalNeutral]
	}

	header := headerStyle.Render(fmt.Sprintf("%s  ·  %s", orDash(r.Pair), orDash(r.Timeframe)))

	signal := lipgloss.NewStyle().Bold(true).Foreground(color).Render(arrow(r.Signal) + " " + string(r.Signal))
	card := cardStyle.BorderForeground(color).Render(strings.Join([]string{
		signal + "  " + badgeStyle.Render(r.SignalType.Label()),
		fmt.Sprintf("%s %s %d%%",
			labelStyle.Render("confidence"),
			lipgloss.NewStyle().Foreground(color).Render(util.Bar(r.Confidence, 20, "█", "░")),
			r.Confidence),
	}, "\n"))

	grid := lipgloss.JoinHorizontal(lipgloss.Top,
		cell("TREND", string(r.Trend)),
		cell("SUPPORT", r.Support),
		cell("RESISTANCE", r.Resistance),
		cell("PREV CANDLE", r.PreviousCandlePower),
	)

	mtg := mtgStyle.Render(labelStyle.Render("MTG") + "\n" + r.MTGInstruction)

	logic := r.Logic
	if !fullLogic {
		logic = util.Preview(logic, 2, 240)
	}
	parts := []string{header, card, grid, mtg, logicStyle.Render(orDash(logic))}

	for _, w := range out.Warnings {
		parts = append(parts, warnStyle.Render("! "+w))
	}
	parts = append(parts, dimStyle.Render(fmt.Sprintf("%s · %s · %.1fs · %s",
		out.Engine, out.Model, out.Duration.Seconds(), out.ID)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func cell(label, value string) string {
	return cellStyle.Render(labelStyle.Render(label) + "\n" + valueStyle.Render(orDash(value)))
}

func arrow(s analysis.Signal) string {
	switch s {
	case analysis.SignalCall:
		return "▲"
	case analysis.SignalPut:
		return "▼"
	}
	return "●"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
