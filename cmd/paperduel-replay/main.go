package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"paperduel/internal/config"
	"paperduel/internal/domain"
	"paperduel/internal/marketdata"
	"paperduel/internal/replay"
	"paperduel/internal/sim"
)

// Styles.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	buyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	sellStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	stateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	doneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
)

// Messages.
type tickMsg time.Time

// tickCmd drives the render refresh; reveals themselves happen inside the
// session's own play loop.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model.
type model struct {
	session *replay.Session
	symbol  string
	speed   time.Duration

	fills   []domain.Fill
	lastErr string

	width, height int
	logger        *slog.Logger
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.session.Snapshot().State != replay.StateFinished {
				m.session.End()
			}
			return m, tea.Quit
		case " ":
			snap := m.session.Snapshot()
			if snap.State == replay.StatePlaying {
				m.recordErr(m.session.Pause())
			} else {
				m.recordErr(m.session.Play(m.speed))
			}
			return m, nil
		case "n", "right":
			m.recordErr(m.session.Step())
			return m, nil
		case "b":
			fill, err := m.session.Buy(1)
			m.recordFill(fill, err)
			return m, nil
		case "s":
			fill, err := m.session.Sell(1)
			m.recordFill(fill, err)
			return m, nil
		case "f":
			fills, err := m.session.Flatten()
			if err != nil {
				m.lastErr = err.Error()
			} else {
				m.lastErr = ""
				m.fills = append(m.fills, fills...)
			}
			return m, nil
		case "e":
			m.recordErr(m.session.End())
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tickCmd()
	}

	return m, nil
}

func (m *model) recordErr(err error) {
	if err != nil {
		m.lastErr = err.Error()
	} else {
		m.lastErr = ""
	}
}

func (m *model) recordFill(fill domain.Fill, err error) {
	if err != nil {
		m.lastErr = err.Error()
		return
	}
	m.lastErr = ""
	m.fills = append(m.fills, fill)
	m.logger.Info("manual fill", "side", fill.Side, "qty", fill.Qty, "price", fill.Price)
}

func (m model) View() string {
	snap := m.session.Snapshot()

	header := fmt.Sprintf(" %s replay    bar %d/%d    %s ",
		m.symbol, snap.Cursor+1, snap.TotalBars, snap.State)
	var b strings.Builder
	b.WriteString(headerStyle.Render(padOrTrunc(header, m.width)))
	b.WriteString("\n\n")

	if snap.Cursor >= 0 {
		bar := snap.LastBar
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			labelStyle.Render(bar.Timestamp.Format("2006-01-02 15:04")),
			priceStyle.Render(fmt.Sprintf("O %.2f  H %.2f  L %.2f  C %.2f",
				bar.Open, bar.High, bar.Low, bar.Close))))
	}

	equityStr := fmt.Sprintf("%.2f", snap.Equity)
	b.WriteString(fmt.Sprintf("  %s %s    %s %d    %s %s    %s %d\n\n",
		labelStyle.Render("equity"), styleEquity(snap.Equity, equityStr),
		labelStyle.Render("position"), snap.Position,
		labelStyle.Render("cash"), fmt.Sprintf("%.2f", snap.Cash),
		labelStyle.Render("trades"), snap.TradeCount))

	if n := len(m.fills); n > 0 {
		b.WriteString(labelStyle.Render("  recent fills") + "\n")
		start := 0
		if n > 5 {
			start = n - 5
		}
		for _, f := range m.fills[start:] {
			style := buyStyle
			if f.Side == domain.SideSell {
				style = sellStyle
			}
			b.WriteString(fmt.Sprintf("    %s %s %d @ %.2f\n",
				f.Timestamp.Format("15:04"), style.Render(string(f.Side)), f.Qty, f.Price))
		}
		b.WriteString("\n")
	}

	if snap.State == replay.StateFinished {
		if res := m.session.Result(); res != nil {
			line := fmt.Sprintf(" finished (%s)  pnl %.2f  return %.2f%%  max dd %.2f%% ",
				snap.EndReason, res.FinalPnl, res.ReturnPct, res.MaxDrawdownPct)
			b.WriteString(doneStyle.Render(line) + "\n\n")
		}
	} else {
		b.WriteString(stateStyle.Render(fmt.Sprintf("  %s", snap.State)) + "\n\n")
	}

	if m.lastErr != "" {
		b.WriteString(errStyle.Render("  "+m.lastErr) + "\n")
	}

	footer := " q quit  space play/pause  n step  b buy  s sell  f flatten  e end"
	b.WriteString(footerStyle.Render(padOrTrunc(footer, m.width)))
	return b.String()
}

func styleEquity(equity float64, s string) string {
	if equity >= 0 {
		return gainStyle.Render(s)
	}
	return lossStyle.Render(s)
}

func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return s
	}
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func main() {
	cfgPath := "config/paperduel.yaml"
	if p := os.Getenv("PAPERDUEL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	symbol := "ES"
	if len(os.Args) > 1 {
		symbol = strings.ToUpper(os.Args[1])
	}
	asset, ok := cfg.Contract(symbol)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown asset %q\n", symbol)
		os.Exit(1)
	}

	// The TUI owns stdout; log to a file instead.
	logPath := fmt.Sprintf("/tmp/paperduel-replay-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo}))

	csvPaths := make(map[string]string, len(cfg.Assets))
	for sym, a := range cfg.Assets {
		csvPaths[sym] = a.DataFile
	}
	source := marketdata.NewSource(csvPaths, marketdata.NewParquetCache(cfg.Storage.DataDir), logger)

	bars, err := source.Bars(symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading %s bars: %v\n", symbol, err)
		os.Exit(1)
	}

	contract := sim.Contract{
		Symbol:        symbol,
		Multiplier:    asset.Multiplier,
		TickSize:      asset.TickSize,
		SlippageTicks: asset.SlippageTicks,
		Commission:    asset.Commission,
	}
	rules := replay.Rules{
		MaxDrawdownPct: cfg.Replay.MaxDrawdownPct,
		MaxTrades:      cfg.Replay.MaxTrades,
	}
	session := replay.New(bars, contract, cfg.Sim.StartingCapital, cfg.Replay.SeedBars, rules, logger)
	if err := session.Seed(); err != nil {
		fmt.Fprintf(os.Stderr, "seeding session: %v\n", err)
		os.Exit(1)
	}
	logger.Info("replay session seeded", "run", session.ID(), "symbol", symbol, "bars", len(bars))

	m := model{
		session: session,
		symbol:  symbol,
		speed:   time.Duration(cfg.Replay.DefaultSpeedMs) * time.Millisecond,
		logger:  logger,
	}
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "running replay UI: %v\n", err)
		os.Exit(1)
	}

	// Print the final result after the UI exits.
	if res := session.Result(); res != nil {
		fmt.Printf("run %s: pnl %.2f, return %.2f%%, max drawdown %.2f%%, %d trades\n",
			res.RunID, res.FinalPnl, res.ReturnPct, res.MaxDrawdownPct, len(res.Trades))
	}
}
