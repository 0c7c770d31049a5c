package form

import (
	"embed"
	"html/template"
	"io"

	"github.com/liamcoop/homeloan/pipeline"
)

const pageTitle = "🏠 Home Loan Approval Predictor"

// BannerKind selects how a banner is styled.
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerFailure BannerKind = "failure"
	BannerNotice  BannerKind = "notice"
	BannerError   BannerKind = "error"
)

// Banner is the single message block shown after an action.
type Banner struct {
	Kind    BannerKind
	Icon    string
	Message string
}

// Text is the banner as the user reads it.
func (b Banner) Text() string {
	if b.Icon == "" {
		return b.Message
	}
	return b.Icon + " " + b.Message
}

func (b Banner) String() string { return b.Text() }

// VerdictBanner renders a verdict as the success or failure banner.
func VerdictBanner(v pipeline.Verdict) *Banner {
	if v == pipeline.Eligible {
		return &Banner{Kind: BannerSuccess, Icon: "✅", Message: string(pipeline.Eligible)}
	}
	return &Banner{Kind: BannerFailure, Icon: "❌", Message: string(pipeline.NotEligible)}
}

func NoticeBanner(msg string) *Banner {
	return &Banner{Kind: BannerNotice, Icon: "🔄", Message: msg}
}

func ErrorBanner(err error) *Banner {
	return &Banner{Kind: BannerError, Message: "An error occurred: " + err.Error()}
}

// View is everything needed to draw the page.
type View struct {
	Title    string
	Sections []SectionView
	Buttons  []ButtonView
	Banner   *Banner
	Phase    Phase
}

type SectionView struct {
	Title   string
	Widgets []WidgetView
}

type WidgetView struct {
	Name    string // generation key, used as the input name
	Label   string
	Help    string
	Control Control
	Options []OptionView
	Value   string
	Min     string
	Max     string
	Step    string // always "any"; browsers reject values off the min+k*step grid
}

type OptionView struct {
	Value    string
	Selected bool
}

type ButtonView struct {
	Action Action
	Label  string

	// NoValidate lets the button submit even when an input is out of range
	NoValidate bool
}

// Render builds the view of state. It does not modify state, and the same
// state and banner always render the same view.
func Render(state State, banner *Banner) View {
	personal := SectionView{Title: "Personal Information"}
	financial := SectionView{Title: "Financial Information"}

	for _, w := range widgets {
		wv := WidgetView{
			Name:    state.WidgetKey(w),
			Label:   w.Label,
			Help:    w.Help,
			Control: w.Control,
			Value:   state.Value(w),
		}
		switch w.Control {
		case ControlSelect:
			for _, opt := range w.Options {
				wv.Options = append(wv.Options, OptionView{Value: opt, Selected: opt == wv.Value})
			}
		case ControlNumber:
			wv.Min = formatNumber(w.Min)
			wv.Max = formatNumber(w.Max)
			wv.Step = "any"
		}

		if w.Section == SectionFinancial {
			financial.Widgets = append(financial.Widgets, wv)
		} else {
			personal.Widgets = append(personal.Widgets, wv)
		}
	}

	phase := state.Phase
	if phase == "" {
		phase = PhaseIdle
	}

	return View{
		Title:    pageTitle,
		Sections: []SectionView{personal, financial},
		Buttons: []ButtonView{
			{Action: ActionPredict, Label: "Predict"},
			{Action: ActionResetAll, Label: "Reset All", NoValidate: true},
			{Action: ActionResetFinancial, Label: "Reset Financial", NoValidate: true},
		},
		Banner: banner,
		Phase:  phase,
	}
}

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

// WriteHTML renders v as the form page.
func WriteHTML(w io.Writer, v View) error {
	return pageTemplate.ExecuteTemplate(w, "form.html", v)
}
