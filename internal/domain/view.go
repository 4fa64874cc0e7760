package domain

import "fmt"

// Phase is the coarse lifecycle state of a quiz session.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseLoading
	PhaseError
	PhaseReady
	PhaseResults
)

var phaseNames = map[Phase]string{
	PhaseNotStarted: "not_started",
	PhaseLoading:    "loading",
	PhaseError:      "error",
	PhaseReady:      "ready",
	PhaseResults:    "results",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name for JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// OptionHint tells the presentation layer how to paint an answer option.
type OptionHint string

const (
	HintAvailable         OptionHint = "available"
	HintSelectedCorrect   OptionHint = "selected-correct"
	HintSelectedIncorrect OptionHint = "selected-incorrect"
	HintCorrect           OptionHint = "correct"
	HintDisabled          OptionHint = "disabled"
)

// Next button labels.
const (
	LabelSkip   = "Skip"
	LabelNext   = "Next"
	LabelFinish = "Finish"
)

// NotAnswered is shown in results for questions without a recorded answer.
const NotAnswered = "Not answered"

// OptionView is one answer option in display order.
type OptionView struct {
	Text    string     `json:"text"`
	Enabled bool       `json:"enabled"`
	Hint    OptionHint `json:"hint"`
}

// QuestionView is the active question as the UI renders it.
type QuestionView struct {
	Text        string       `json:"text"`
	Options     []OptionView `json:"options"`
	Answer      *UserAnswer  `json:"answer,omitempty"`
	NextLabel   string       `json:"nextLabel"`
	CanPrevious bool         `json:"canPrevious"`
}

// View is a read-only snapshot of a session for rendering. Question and
// answer text is provider text, HTML-encoded as indicated by Encoding.
type View struct {
	SessionID        string        `json:"sessionId"`
	Phase            Phase         `json:"phase"`
	Encoding         string        `json:"encoding"`
	Error            string        `json:"error,omitempty"`
	Index            int           `json:"index"`
	Total            int           `json:"total"`
	Score            int           `json:"score"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Progress         float64       `json:"progress"`
	Question         *QuestionView `json:"question,omitempty"`
	Result           *Result       `json:"result,omitempty"`
}
