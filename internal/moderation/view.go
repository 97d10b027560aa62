package moderation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/opencloud"
	"github.com/projectamerika/mayflower/pkg/utils"
)

const (
	// MaxFieldLength is the longest value Discord accepts in an embed field.
	MaxFieldLength = 1024
	// MaxWarningLineLength bounds one warning in the rendered list.
	MaxWarningLineLength = 200
)

// View is the state of one Roblox user as shown in a manage session.
type View struct {
	UserID          uint64             `json:"userId"`
	Username        string             `json:"username"`
	ThumbnailURL    string             `json:"thumbnailUrl"`
	Ban             *ledger.BanRecord  `json:"ban"`
	Warnings        ledger.WarningList `json:"warnings"`
	WarningsVersion opencloud.Version  `json:"warningsVersion"`
}

// newView builds a view from a ledger snapshot.
func newView(username, thumbnailURL string, snapshot *ledger.Snapshot) View {
	warnings := snapshot.Warnings
	if warnings == nil {
		warnings = ledger.WarningList{}
	}

	return View{
		UserID:          snapshot.UserID,
		Username:        username,
		ThumbnailURL:    thumbnailURL,
		Ban:             snapshot.Ban,
		Warnings:        warnings,
		WarningsVersion: snapshot.WarningsVersion,
	}
}

// ActionOption is one entry of the action menu.
type ActionOption struct {
	Action   Action
	Label    string
	Disabled bool
}

// WarningOption is one selectable warning in the removal menu.
type WarningOption struct {
	Index  int
	Label  string
	Reason string
}

// Summary is the rendered form of a view.
type Summary struct {
	Title        string
	ThumbnailURL string
	Banned       string
	Warnings     string
	Actions      []ActionOption
	Removable    []WarningOption
}

// Render turns a view into the text and menu shown to the operator.
func Render(view View) Summary {
	banned := "No"
	if view.Ban != nil {
		banned = utils.TruncateString("Yes - "+view.Ban.Reason, MaxFieldLength)
	}

	header := fmt.Sprintf("%d warning(s)\n\n", len(view.Warnings))

	list := "None."
	if len(view.Warnings) > 0 {
		lines := make([]string, len(view.Warnings))
		for i, reason := range view.Warnings {
			line := fmt.Sprintf("%d. %s", i+1, utils.CompressAllWhitespace(reason))
			lines[i] = utils.TruncateString(line, MaxWarningLineLength)
		}

		// Room left after the header and the code fence
		budget := MaxFieldLength - utf8.RuneCountInString(header) - 6
		list = utils.TruncateString(strings.Join(lines, "\n"), budget)
	}

	banAction := ActionOption{Action: ActionBan, Label: "Ban"}
	if view.Ban != nil {
		banAction = ActionOption{Action: ActionUnban, Label: "Unban"}
	}

	removable := make([]WarningOption, len(view.Warnings))
	for i, reason := range view.Warnings {
		removable[i] = WarningOption{
			Index:  i,
			Label:  strconv.Itoa(i+1) + ".",
			Reason: reason,
		}
	}

	return Summary{
		Title:        "Manage " + view.Username,
		ThumbnailURL: view.ThumbnailURL,
		Banned:       banned,
		Warnings:     header + "```" + list + "```",
		Actions: []ActionOption{
			{Action: ActionKick, Label: "Kick"},
			banAction,
			{Action: ActionAddWarning, Label: "Add Warning"},
			{Action: ActionRemoveWarning, Label: "Remove warning(s)...", Disabled: len(view.Warnings) == 0},
			{Action: ActionCancel, Label: "End Prompt"},
		},
		Removable: removable,
	}
}
