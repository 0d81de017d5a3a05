package peer

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	Primary = lipgloss.Color("#F472B6")
	Partner = lipgloss.Color("#22d3ee")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	SelfStyle    = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	PartnerStyle = lipgloss.NewStyle().Bold(true).Foreground(Partner)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
)

// Printer writes styled lines. It is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func (p *Printer) Title(msg string) {
	p.line(TitleStyle.Render(msg))
}

func (p *Printer) Info(msg string) {
	p.line(MutedStyle.Render(msg))
}

func (p *Printer) Success(msg string) {
	p.line(SuccessStyle.Render("✓ " + msg))
}

func (p *Printer) Warning(msg string) {
	p.line(WarningStyle.Render("! " + msg))
}

func (p *Printer) Error(msg string) {
	p.line(ErrorStyle.Render("✗ " + msg))
}

// Chat prints a chat line attributed to name.
func (p *Printer) Chat(name, text string, self bool) {
	style := PartnerStyle
	if self {
		style = SelfStyle
	}
	p.line(style.Render(name+":") + " " + text)
}
