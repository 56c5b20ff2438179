package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
	"github.com/Mohsinsiddi/tsender/internal/amount"
	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/config"
)

// ErrFormCancelled is returned when the user leaves the form without
// submitting.
var ErrFormCancelled = errors.New("airdrop form cancelled")

// MetadataFunc looks up token metadata for the preview panel.
type MetadataFunc func(ctx context.Context, token string) (*chain.TokenInfo, error)

// --- Bubble Tea model ---

type formField int

const (
	fieldToken formField = iota
	fieldRecipients
	fieldAmounts
	fieldSubmit
	fieldCount
)

var fieldLabels = [...]string{
	fieldToken:      "Token Address",
	fieldRecipients: "Recipients (comma or new line separated)",
	fieldAmounts:    "Amounts in wei (comma or new line separated)",
}

type metadataMsg struct {
	token string
	info  *chain.TokenInfo
	err   error
}

type formModel struct {
	focus  formField
	values [fieldSubmit]string

	fetch    MetadataFunc
	validate func(airdrop.Request) error

	fetched  string // token the current metadata belongs to
	loading  bool
	token    *chain.TokenInfo
	tokenErr error

	err       string
	submitted bool
	cancelled bool
}

func newFormModel(initial airdrop.Request, fetch MetadataFunc, validate func(airdrop.Request) error) formModel {
	m := formModel{
		values:   [fieldSubmit]string{initial.Token, initial.Recipients, initial.Amounts},
		fetch:    fetch,
		validate: validate,
	}
	m.lookupCmd()
	return m
}

func (m formModel) request() airdrop.Request {
	return airdrop.Request{
		Token:      strings.TrimSpace(m.values[fieldToken]),
		Recipients: m.values[fieldRecipients],
		Amounts:    m.values[fieldAmounts],
	}
}

func (m formModel) Init() tea.Cmd {
	if !m.loading {
		return nil
	}
	return fetchCmd(m.fetch, m.fetched)
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case metadataMsg:
		if msg.token == m.fetched {
			m.loading = false
			m.token, m.tokenErr = msg.info, msg.err
		}
		return m, nil

	case tea.KeyMsg:
		m.err = ""
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit

		case tea.KeyTab, tea.KeyDown:
			m.focus = (m.focus + 1) % fieldCount
			return m, m.lookupCmd()

		case tea.KeyShiftTab, tea.KeyUp:
			m.focus = (m.focus + fieldCount - 1) % fieldCount
			return m, m.lookupCmd()

		case tea.KeyEnter:
			switch m.focus {
			case fieldSubmit:
				return m.submit()
			case fieldToken:
				m.focus = fieldRecipients
				return m, m.lookupCmd()
			default:
				m.values[m.focus] += "\n"
			}

		case tea.KeyBackspace:
			if m.focus < fieldSubmit {
				r := []rune(m.values[m.focus])
				if len(r) > 0 {
					m.values[m.focus] = string(r[:len(r)-1])
				}
			}

		case tea.KeySpace:
			if m.focus < fieldSubmit {
				m.values[m.focus] += " "
			}

		case tea.KeyRunes:
			if m.focus < fieldSubmit {
				m.values[m.focus] += string(msg.Runes)
			}
		}
	}
	return m, nil
}

func (m formModel) submit() (tea.Model, tea.Cmd) {
	if m.validate != nil {
		if err := m.validate(m.request()); err != nil {
			m.err = err.Error()
			return m, nil
		}
	}
	m.submitted = true
	return m, tea.Quit
}

// lookupCmd starts a metadata fetch when the token field holds a new
// well-formed address. Earlier fetches still in flight are ignored when
// they land.
func (m *formModel) lookupCmd() tea.Cmd {
	token := strings.TrimSpace(m.values[fieldToken])
	if m.fetch == nil || token == m.fetched || !common.IsHexAddress(token) || !strings.HasPrefix(token, "0x") {
		return nil
	}
	m.fetched = token
	m.loading = true
	m.token, m.tokenErr = nil, nil
	return fetchCmd(m.fetch, token)
}

func fetchCmd(fetch MetadataFunc, token string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), config.MetadataTimeout)
		defer cancel()
		info, err := fetch(ctx, token)
		return metadataMsg{token: token, info: info, err: err}
	}
}

func (m formModel) View() string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("ERC-20 Airdrop") + "\n")

	for f := fieldToken; f < fieldSubmit; f++ {
		sb.WriteString(StyleMeta.Render(fieldLabels[f]) + "\n")
		body := m.values[f]
		if f == m.focus {
			body += "█"
		}
		if body == "" {
			body = " "
		}
		style := StyleBorder
		if f == m.focus {
			style = StyleFocused
		}
		sb.WriteString(style.Render(body) + "\n")
	}

	sb.WriteString(m.previewPanel() + "\n")

	button := "[ Send Tokens ]"
	if m.focus == fieldSubmit {
		sb.WriteString(StyleSelected.Render(button))
	} else {
		sb.WriteString(StyleValue.Render(button))
	}
	sb.WriteString("\n")
	if m.err != "" {
		sb.WriteString(Err(m.err) + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render("Tab/↑/↓ move · Enter new line or submit · Esc quit"))
	return sb.String() + "\n"
}

func (m formModel) previewPanel() string {
	name := "-"
	switch {
	case m.loading:
		name = "loading…"
	case m.tokenErr != nil:
		name = "unavailable"
	case m.token != nil:
		name = tokenLabel(m.token)
	}

	total := amount.CalculateTotal(m.values[fieldAmounts])
	tokens := "-"
	if m.token != nil {
		if _, exact, err := amount.ParseWei(m.values[fieldAmounts]); err == nil {
			tokens = amount.FormatUnits(exact, int(m.token.Decimals))
		}
	}

	return KeyValueBlock("Transaction Details", [][2]string{
		{"Token Name", name},
		{"Amount (wei)", strconv.FormatFloat(total, 'f', -1, 64)},
		{"Amount (tokens)", tokens},
		{"Recipients", strconv.Itoa(len(amount.Split(m.values[fieldRecipients])))},
	})
}

// RunAirdropForm launches the interactive airdrop form prefilled with
// initial. validate runs on submit; a failure keeps the form open with the
// message shown. fetch may be nil.
func RunAirdropForm(initial airdrop.Request, fetch MetadataFunc, validate func(airdrop.Request) error) (*airdrop.Request, error) {
	m := newFormModel(initial, fetch, validate)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("form error: %w", err)
	}
	fm := final.(formModel)
	if !fm.submitted {
		return nil, ErrFormCancelled
	}
	req := fm.request()
	return &req, nil
}
