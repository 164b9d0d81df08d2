package tui

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/client"
	"github.com/lox/pokerroom/internal/protocol"
)

// Sender delivers a message to the room
type Sender func(protocol.Inbound) error

// TableModel is the Bubble Tea model for one seat at a room: a scrolling
// event log, a table sidebar and a command line.
type TableModel struct {
	playerID string
	incoming <-chan protocol.Outbound
	send     Sender
	logger   *log.Logger

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	gameLog     []string
	quitting    bool
	focusedPane int // 0 = log, 1 = input

	// Table state, all from the server
	state *protocol.GameStateUpdate
	lobby *protocol.LobbyUpdate
	offer *protocol.OfferRunItMultipleTimes
	names map[string]string

	// Dimensions
	width       int
	height      int
	initialized bool
}

// serverMsg carries one room message into Update
type serverMsg struct {
	msg protocol.Outbound
}

// disconnectedMsg reports that the message stream ended
type disconnectedMsg struct{}

// NewTableModel creates a model reading room messages from incoming and
// writing commands through send.
func NewTableModel(playerID string, incoming <-chan protocol.Outbound, send Sender, logger *log.Logger) *TableModel {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "sit 1000, ready, call, bet 60, fold, run 2, agree..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &TableModel{
		playerID:    playerID,
		incoming:    incoming,
		send:        send,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		actionInput: ti,
		focusedPane: 1,
		names:       make(map[string]string),
	}
}

// Init initializes the TUI model
func (m *TableModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen())
}

// listen waits for the next room message
func (m *TableModel) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.incoming
		if !ok {
			return disconnectedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update handles messages in the TUI
func (m *TableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case serverMsg:
		m.apply(msg.msg)
		return m, m.listen()

	case disconnectedMsg:
		m.AddLogEntry(ErrorStyle.Render("Disconnected from server (ctrl+c to exit)"))
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				input := strings.TrimSpace(m.actionInput.Value())
				m.actionInput.SetValue("")
				if cmd := m.submit(input); cmd != nil {
					return m, cmd
				}
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit handles one typed line
func (m *TableModel) submit(input string) tea.Cmd {
	switch input {
	case "":
		return nil
	case "quit", "exit":
		m.quitting = true
		return tea.Sequence(tea.ClearScreen, tea.Quit)
	case "help", "?":
		m.AddLogEntry(InfoStyle.Render(client.Help))
		return nil
	}

	msg, err := client.ParseCommand(input, m.validActions())
	if err != nil {
		if errors.Is(err, client.ErrUnknownCommand) {
			m.AddLogEntry(ErrorStyle.Render(err.Error() + " (type help)"))
		} else {
			m.AddLogEntry(ErrorStyle.Render(err.Error()))
		}
		return nil
	}
	if err := m.send(msg); err != nil {
		m.logger.Error("Failed to send command", "type", msg.Type(), "error", err)
		m.AddLogEntry(ErrorStyle.Render("send failed: " + err.Error()))
	}
	return nil
}

func (m *TableModel) validActions() []protocol.ValidAction {
	if m.state == nil {
		return nil
	}
	return m.state.ValidActions
}

func (m *TableModel) name(playerID string) string {
	if n, ok := m.names[playerID]; ok && n != "" {
		return n
	}
	return playerID
}

func (m *TableModel) nameList(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = m.name(id)
	}
	return strings.Join(out, ", ")
}

// apply folds one room message into the model and logs what happened
func (m *TableModel) apply(msg protocol.Outbound) {
	switch msg := msg.(type) {
	case *protocol.GameStateUpdate:
		m.applyState(msg)

	case *protocol.PlayerJoined:
		m.names[msg.PlayerID] = msg.Name
		m.AddLogEntry(fmt.Sprintf("%s joined", msg.Name))

	case *protocol.PlayerLeft:
		m.AddLogEntry(fmt.Sprintf("%s left", m.name(msg.PlayerID)))

	case *protocol.Error:
		line := fmt.Sprintf("%s: %s", msg.Code, msg.Message)
		if msg.Code == protocol.CodeInvalidAmount {
			line += fmt.Sprintf(" (%d-%d)", msg.Min, msg.Max)
		}
		m.AddLogEntry(ErrorStyle.Render(line))

	case *protocol.AllInEquityUpdate:
		label := "All in"
		if msg.RunIndex > 0 {
			label = fmt.Sprintf("Run %d", msg.RunIndex)
		}
		m.AddLogEntry(WarningStyle.Render(label + ": " + m.formatEquities(msg.Equities)))
		if msg.Outs != nil {
			m.AddLogEntry(InfoStyle.Render(formatOuts(m.name(msg.Outs.Player), msg.Outs)))
		}

	case *protocol.OfferRunItMultipleTimes:
		m.offer = msg
		m.AddLogEntry(WarningStyle.Render(m.describeOffer(msg)))

	case *protocol.RunItMultipleTimesResult:
		m.offer = nil
		m.logResult(msg)

	case *protocol.BlindsUp:
		m.AddLogEntry(WarningStyle.Render(fmt.Sprintf("Blinds up: level %d, %d/%d", msg.Level, msg.SmallBlind, msg.BigBlind)))

	case *protocol.TournamentWinner:
		m.AddLogEntry(SuccessStyle.Render(fmt.Sprintf("%s wins the tournament with %d", msg.Name, msg.Stack)))

	case *protocol.SocialActionBroadcast:
		m.AddLogEntry(fmt.Sprintf("%s: %s", m.name(msg.PlayerID), string(msg.Payload)))

	case *protocol.LobbyUpdate:
		m.lobby = msg

	case *protocol.PlayerReadyUpdate:
		verb := "is away"
		if msg.IsReady {
			verb = "is ready"
		}
		m.AddLogEntry(InfoStyle.Render(fmt.Sprintf("%s %s", m.name(msg.PlayerID), verb)))

	case *protocol.PlayerStatusUpdate:
		m.AddLogEntry(InfoStyle.Render(fmt.Sprintf("%s is %s (%d)", m.name(msg.PlayerID), msg.Status, msg.Stack)))

	case *protocol.ConnectionStatusUpdate:
		verb := "disconnected"
		if msg.Connected {
			verb = "reconnected"
		}
		m.AddLogEntry(InfoStyle.Render(fmt.Sprintf("%s %s", m.name(msg.PlayerID), verb)))

	default:
		m.logger.Debug("Ignoring message", "type", msg.Type())
	}
}

// applyState logs hand and street transitions, then replaces the table state
func (m *TableModel) applyState(s *protocol.GameStateUpdate) {
	prev := m.state
	m.state = s
	for _, p := range s.Players {
		if _, ok := m.names[p.ID]; !ok {
			m.names[p.ID] = p.Name
		}
	}
	if s.HandID == "" {
		return
	}

	if prev == nil || prev.HandID != s.HandID {
		m.offer = nil
		m.AddLogEntry(HeaderStyle.Render(fmt.Sprintf("Hand %s  %d/%d", shortID(s.HandID), s.SmallBlind, s.BigBlind)))
		if me := findPlayer(s, m.playerID); me != nil && len(me.HoleCards) > 0 {
			m.AddLogEntry("Dealt " + FormatCards(me.HoleCards))
		}
	} else if prev.Stage != s.Stage && len(s.Board) > 0 && s.Stage != "showdown" {
		m.AddLogEntry(fmt.Sprintf("*** %s *** %s", strings.ToUpper(s.Stage), FormatCards(s.Board)))
	}
	if prev != nil && prev.HandID == s.HandID {
		m.logBets(prev, s)
	}
	if s.Active == m.playerID && (prev == nil || prev.Active != m.playerID || prev.Stage != s.Stage) {
		m.AddLogEntry(ActionsStyle.Render("Your turn: " + formatValidActions(s.ValidActions)))
	}
}

// logBets reports what changed for each player between two states of a hand
func (m *TableModel) logBets(prev, next *protocol.GameStateUpdate) {
	for _, p := range next.Players {
		old := findPlayer(prev, p.ID)
		if old == nil {
			continue
		}
		switch {
		case p.Folded && !old.Folded:
			m.AddLogEntry(fmt.Sprintf("%s folds", p.Name))
		case p.TotalBet > old.TotalBet && p.AllIn:
			m.AddLogEntry(fmt.Sprintf("%s is all in for %d", p.Name, p.TotalBet))
		case p.TotalBet > old.TotalBet:
			m.AddLogEntry(fmt.Sprintf("%s puts in %d (street %d)", p.Name, p.TotalBet-old.TotalBet, p.StreetBet))
		case p.Acted && !old.Acted && p.StreetBet == old.StreetBet && prev.Stage == next.Stage:
			m.AddLogEntry(fmt.Sprintf("%s checks", p.Name))
		}
	}
}

func (m *TableModel) describeOffer(o *protocol.OfferRunItMultipleTimes) string {
	if o.State == "awaiting_agreement" {
		line := fmt.Sprintf("%s wants to run it %d times", m.name(o.Underdog), o.Times)
		if slices.Contains(o.Favorites, m.playerID) {
			line += " (agree / decline)"
		}
		return line
	}
	line := fmt.Sprintf("%s may run it %v against %s", m.name(o.Underdog), o.Options, m.nameList(o.Favorites))
	if o.Underdog == m.playerID {
		line += " (run <n>)"
	}
	return line
}

func (m *TableModel) logResult(r *protocol.RunItMultipleTimesResult) {
	if r.Uncontested {
		for _, id := range slices.Sorted(maps.Keys(r.Payouts)) {
			m.AddLogEntry(SuccessStyle.Render(fmt.Sprintf("%s wins %d uncontested", m.name(id), r.Payouts[id])))
		}
		return
	}
	for _, id := range slices.Sorted(maps.Keys(r.Revealed)) {
		m.AddLogEntry(fmt.Sprintf("%s shows %s", m.name(id), FormatCards(r.Revealed[id])))
	}
	for _, b := range r.Boards {
		prefix := ""
		if r.Times > 1 {
			prefix = fmt.Sprintf("Board %d ", b.Index+1)
		}
		m.AddLogEntry(prefix + FormatCards(b.Board))
		for _, pot := range b.Pots {
			m.AddLogEntry("  " + SuccessStyle.Render(fmt.Sprintf("%s takes %d with %s", m.nameList(pot.Winners), pot.Amount, pot.Hand)))
		}
	}
}

func (m *TableModel) formatEquities(equities []protocol.PlayerEquity) string {
	parts := make([]string, len(equities))
	for i, e := range equities {
		parts[i] = fmt.Sprintf("%s %.1f%%", m.name(e.PlayerID), e.Equity*100)
	}
	return strings.Join(parts, ", ")
}

func formatOuts(player string, o *protocol.Outs) string {
	switch o.Kind {
	case "direct_outs":
		return fmt.Sprintf("%s has %d outs: %s", player, len(o.Outs), strings.Join(o.Outs, " "))
	case "runner_runner":
		return fmt.Sprintf("%s needs runner-runner (%d combos)", player, len(o.Pairs))
	case "drawing_dead":
		return fmt.Sprintf("%s is drawing dead", player)
	}
	return player + ": " + o.Kind
}

func formatValidActions(actions []protocol.ValidAction) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		switch a.Action {
		case "call":
			parts = append(parts, SuccessStyle.Render(fmt.Sprintf("[call %d]", a.Min)))
		case "bet":
			parts = append(parts, WarningStyle.Render(fmt.Sprintf("[bet %d-%d]", a.Min, a.Max)))
		case "fold":
			parts = append(parts, ErrorStyle.Render("[fold]"))
		default:
			parts = append(parts, SuccessStyle.Render("["+a.Action+"]"))
		}
	}
	return strings.Join(parts, " ")
}

func findPlayer(s *protocol.GameStateUpdate, playerID string) *protocol.PlayerView {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return &s.Players[i]
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

// View renders the TUI
func (m *TableModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 28)
	paneHeight := max(m.height-actionHeight-4, 1)
	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight
	if !m.initialized && m.logViewport.Width > 1 && m.logViewport.Height > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

// renderSidebarPane shows the table: blinds, pot, board and seats
func (m *TableModel) renderSidebarPane() string {
	var content strings.Builder

	if m.lobby != nil {
		content.WriteString(HeaderStyle.Render(" " + m.lobby.RoomID + " "))
		content.WriteString(InfoStyle.Render(fmt.Sprintf(" %d/%d seated", m.lobby.Seated, m.lobby.MaxSeats)))
		content.WriteString("\n\n")
	}

	s := m.state
	if s == nil {
		content.WriteString(InfoStyle.Render("Waiting for table state..."))
		return content.String()
	}

	content.WriteString(WarningStyle.Render(fmt.Sprintf("Blinds %d/%d  Pot %d", s.SmallBlind, s.BigBlind, s.Pot)))
	content.WriteString("\n")
	if len(s.Board) > 0 {
		content.WriteString("Board " + FormatCards(s.Board) + "\n")
	}
	content.WriteString("\n")

	for _, p := range s.Players {
		marker := "  "
		switch {
		case p.ID == s.Active:
			marker = "> "
		case p.Seat == s.Dealer:
			marker = "D "
		}
		line := fmt.Sprintf("%s%d %-10s %6d", marker, p.Seat+1, p.Name, p.Stack)
		if p.StreetBet > 0 {
			line += fmt.Sprintf(" [%d]", p.StreetBet)
		}
		switch {
		case p.Folded:
			line = InfoStyle.Render(line + " folded")
		case p.AllIn:
			line = WarningStyle.Render(line + " all in")
		case !p.Connected:
			line = InfoStyle.Render(line + " away")
		case p.Status != "in_hand":
			line = InfoStyle.Render(line + " " + p.Status)
		}
		if len(p.HoleCards) > 0 {
			line += " " + FormatCards(p.HoleCards)
		}
		content.WriteString(line + "\n")
	}
	return content.String()
}

// renderActionPane renders the command line and what the player can do
func (m *TableModel) renderActionPane() string {
	var content strings.Builder

	switch {
	case m.state != nil && m.state.Active == m.playerID:
		content.WriteString(ActionsStyle.Render("Actions: " + formatValidActions(m.state.ValidActions)))
	case m.offer != nil && m.offer.Underdog == m.playerID && m.offer.State != "awaiting_agreement":
		content.WriteString(ActionsStyle.Render(fmt.Sprintf("Choose how many runs: %v", m.offer.Options)))
	case m.offer != nil && m.offer.State == "awaiting_agreement" && slices.Contains(m.offer.Favorites, m.playerID):
		content.WriteString(ActionsStyle.Render(fmt.Sprintf("Run it %d times? agree / decline", m.offer.Times)))
	default:
		content.WriteString(HandInfoStyle.Render("Waiting..."))
	}
	content.WriteString("\n")
	content.WriteString(m.actionInput.View())
	content.WriteString("\n")

	if m.focusedPane == 0 {
		content.WriteString(InfoStyle.Render("Log focused: ↑↓ scroll, Home/End, Tab to input"))
	} else {
		content.WriteString(InfoStyle.Render("help for commands • Tab to scroll log • Ctrl+C to quit"))
	}
	return content.String()
}

// AddLogEntry adds an entry to the game log
func (m *TableModel) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns a copy of the game log
func (m *TableModel) Log() []string {
	return slices.Clone(m.gameLog)
}
