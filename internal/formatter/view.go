// package formatter turns task statuses and task history into display payloads (views, CSV, Markdown, plain text)
package formatter

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/palgatox64/sonusitory/internal/models"
)

// LibraryPath is the page a successful scan navigates to.
const LibraryPath = "/artists/"

const (
	defaultSuccessMessage = "¡Tarea completada!"
	defaultFailureMessage = "Error desconocido"
)

// Color is the semantic color of a view. Surfaces map it to their own palette.
type Color string

const (
	ColorInfo    Color = "info"
	ColorSuccess Color = "success"
	ColorDanger  Color = "danger"
	ColorMuted   Color = "muted"
)

// ActionKind tags the control offered with a final view.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionNavigate
	ActionDismiss
)

func (k ActionKind) String() string {
	switch k {
	case ActionNavigate:
		return "navigate"
	case ActionDismiss:
		return "dismiss"
	default:
		return "none"
	}
}

// Action is the control attached to a terminal view.
type Action struct {
	Kind   ActionKind
	Label  string
	Target string
}

// View is the display payload for one task status.
//
// Every string in a View is already escaped.
type View struct {
	Title       string
	Status      models.StatusKind
	Lines       []string
	Percent     int
	Determinate bool
	Spinner     bool
	Color       Color
	Action      Action
	Terminal    bool
}

var stepLabels = map[models.Step]func(models.StepInfo) string{
	models.StepQueued:                constant("En cola..."),
	models.StepSearchingAudioFiles:   constant("Buscando archivos de audio..."),
	models.StepGettingExistingFiles:  constant("Obteniendo archivos existentes..."),
	models.StepSearchingNewFiles:     constant("Buscando archivos nuevos..."),
	models.StepGettingExistingAlbums: constant("Obteniendo álbumes existentes..."),
	models.StepProcessingAudioFiles: func(s models.StepInfo) string {
		if s.Current == nil {
			return "Procesando archivos de audio..."
		}
		return fmt.Sprintf("Procesando archivos de audio (%d)...", *s.Current)
	},
	models.StepCovers: func(s models.StepInfo) string {
		if s.Current == nil || s.Total == nil {
			return "Buscando portadas..."
		}
		return fmt.Sprintf("Buscando portadas (%d de %d)...", *s.Current, *s.Total)
	},
}

func constant(label string) func(models.StepInfo) string {
	return func(models.StepInfo) string { return label }
}

// FormatStep maps a step to its human-readable phrase.
//
// Unknown steps fall back to "Procesando: {step} ({current}/{total})..." when both
// counters are present, and to "Procesando..." otherwise.
func FormatStep(info models.StepInfo) string {
	if label, ok := stepLabels[info.Step]; ok {
		return label(info)
	}
	if info.Current != nil && info.Total != nil {
		return fmt.Sprintf("Procesando: %s (%d/%d)...", Escape(string(info.Step)), *info.Current, *info.Total)
	}
	return "Procesando..."
}

// Percentage returns round(100 * current / total) with current clamped to [0, total].
// Halves round up. ok is false when total is not positive.
func Percentage(current, total int) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	current = min(max(current, 0), total)
	return (200*current + total) / (2 * total), true
}

// RenderStatus maps a status to its view. It has no side effects.
func RenderStatus(s models.TaskStatus) View {
	v := View{Status: s.Kind}

	switch s.Kind {
	case models.StatusPending:
		v.Lines = []string{FormatStep(models.StepInfo{Step: models.StepQueued})}
		v.Spinner = true
		v.Color = ColorInfo
	case models.StatusRunning:
		v.Lines = []string{FormatStep(s.Info)}
		v.Spinner = true
		v.Color = ColorInfo
		if s.Info.Current != nil && s.Info.Total != nil {
			v.Percent, v.Determinate = Percentage(*s.Info.Current, *s.Info.Total)
		}
	case models.StatusSucceeded:
		v.Lines = []string{Escape(orDefault(successMessage(s), defaultSuccessMessage))}
		v.Color = ColorSuccess
		v.Percent, v.Determinate = 100, true
		v.Action = Action{Kind: ActionNavigate, Label: "Ir a la biblioteca", Target: LibraryPath}
		v.Terminal = true
	case models.StatusFailed:
		v.Lines = []string{"Error: " + Escape(orDefault(s.Message, defaultFailureMessage))}
		v.Color = ColorDanger
		v.Action = Action{Kind: ActionDismiss, Label: "Cerrar"}
		v.Terminal = true
	default:
		v.Lines = []string{"Estado: " + Escape(s.Raw)}
		v.Color = ColorMuted
	}
	return v
}

// RenderTask renders a status under the given task title.
func RenderTask(title string, s models.TaskStatus) View {
	v := RenderStatus(s)
	v.Title = Escape(title)
	return v
}

func successMessage(s models.TaskStatus) string {
	if s.Message != "" {
		return s.Message
	}
	if msg, ok := s.Result["message"].(string); ok {
		return msg
	}
	return ""
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Escape neutralises server-supplied text: control characters are dropped and
// HTML metacharacters are replaced by entities.
func Escape(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return html.EscapeString(s)
}

// ToText renders a view as plain text lines for line-oriented output.
func ToText(v View) string {
	var b strings.Builder
	if v.Title != "" {
		b.WriteString(v.Title)
		b.WriteString(": ")
	}
	b.WriteString(strings.Join(v.Lines, " "))
	if v.Determinate && !v.Terminal {
		b.WriteString(" [")
		b.WriteString(strconv.Itoa(v.Percent))
		b.WriteString("%]")
	}
	if v.Action.Kind != ActionNone && v.Action.Label != "" {
		b.WriteString(" (")
		b.WriteString(v.Action.Label)
		if v.Action.Target != "" {
			b.WriteString(": ")
			b.WriteString(v.Action.Target)
		}
		b.WriteString(")")
	}
	return b.String()
}
