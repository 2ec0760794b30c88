package command

import (
	"strings"

	"github.com/gosuda/participa/internal/domain"
)

// Action identifies the kind of a parsed command.
type Action string

const (
	// ActionRecord appends a participation record for the sender.
	ActionRecord Action = "record"
	// ActionHistory lists the sender's own participations.
	ActionHistory Action = "history"
	// ActionHelp shows the member usage text.
	ActionHelp Action = "help"
	// ActionRecent lists the latest records across all senders (admin).
	ActionRecent Action = "recent"
	// ActionUndoLast removes the sender's newest record (admin).
	ActionUndoLast Action = "undo_last"
	// ActionReportNow runs the report immediately (admin).
	ActionReportNow Action = "report_now"
	// ActionUnknown is anything else, including empty input. It yields no reply.
	ActionUnknown Action = "unknown"
)

// Vocabulary phrases, compared against the trimmed lower-cased message.
const (
	PhraseHistory   = "/meu historico"
	PhraseHelp      = "/ajuda"
	PhraseReportNow = "/relatorio agora"
	PhraseRecent    = "/ultimos registros"
	PhraseUndoLast  = "/corrigir ultimo"

	// LabelDelimiter separates a record trigger from its optional label.
	LabelDelimiter = ":"

	// RecentLimit is the fixed row count of the recent records listing.
	RecentLimit = 10
)

// DefaultRecordTriggers are the prefixes that record a participation.
func DefaultRecordTriggers() []string {
	return []string{"participei", "gravei", "/participar"}
}

// Command is one parsed inbound message.
type Command struct {
	Action      Action
	SenderID    string
	DisplayName string
	Label       string // record label; empty means absent
	Target      string // sender named by the extended undo form, which is not supported
	Raw         string // original text
}

// Parser maps free text plus sender identity to a Command using prefix and
// equality rules.
type Parser struct {
	adminID  string
	triggers []string
}

// NewParser creates a Parser. adminID gates the administrative phrases; an empty
// adminID disables them. Nil or empty triggers fall back to DefaultRecordTriggers.
func NewParser(adminID string, triggers []string) *Parser {
	if len(triggers) == 0 {
		triggers = DefaultRecordTriggers()
	}
	normalized := make([]string, 0, len(triggers))
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	return &Parser{
		adminID:  strings.TrimSpace(adminID),
		triggers: normalized,
	}
}

// IsAdmin reports whether senderID is the configured administrator.
func (p *Parser) IsAdmin(senderID string) bool {
	return p.adminID != "" && domain.NormalizeSenderID(senderID) == p.adminID
}

// Parse classifies text sent by senderID. senderID is trimmed; displayName
// falls back to it when blank.
func (p *Parser) Parse(text, senderID, displayName string) Command {
	senderID = domain.NormalizeSenderID(senderID)
	if strings.TrimSpace(displayName) == "" {
		displayName = senderID
	}
	cmd := Command{
		Action:      ActionUnknown,
		SenderID:    senderID,
		DisplayName: strings.TrimSpace(displayName),
		Raw:         text,
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return cmd
	}
	lower := strings.ToLower(trimmed)

	// Member commands take precedence over admin phrases.
	for _, trigger := range p.triggers {
		if strings.HasPrefix(lower, trigger) {
			cmd.Action = ActionRecord
			if _, label, found := strings.Cut(trimmed, LabelDelimiter); found {
				cmd.Label = strings.TrimSpace(label)
			}
			return cmd
		}
	}

	switch lower {
	case PhraseHistory:
		cmd.Action = ActionHistory
		return cmd
	case PhraseHelp:
		cmd.Action = ActionHelp
		return cmd
	}

	if !p.IsAdmin(senderID) {
		return cmd
	}

	switch {
	case lower == PhraseReportNow:
		cmd.Action = ActionReportNow
	case lower == PhraseRecent:
		cmd.Action = ActionRecent
	case strings.HasPrefix(lower, PhraseUndoLast):
		cmd.Action = ActionUndoLast
		if fields := strings.Fields(trimmed); len(fields) > 2 {
			cmd.Target = strings.Join(fields[2:], " ")
		}
	}

	return cmd
}
