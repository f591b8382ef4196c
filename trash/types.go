// Package trash implements waste-collection lookups on top of the generic
// recurrence engine: which categories go out on a day, when a category is
// next collected, and which registered category a spoken phrase refers to.
package trash

import "github.com/warp/trash-schedule/generic"

// =============================================================================
// CATEGORY CODES
// =============================================================================

// Category codes as stored in registered schedules.
const (
	CodeBurn      = "burn"
	CodeUnburn    = "unburn"
	CodePlastic   = "plastic"
	CodeBottle    = "bottle"
	CodeCan       = "can"
	CodePetBottle = "petbottle"
	CodePaper     = "paper"
	CodeResource  = "resource"
	CodeCoarse    = "coarse"
	CodeOther     = "other"
)

// Category is one registered kind of waste with its collection rules.
// DisplayName is only set for CodeOther; every other code is named by a
// NameResolver.
type Category struct {
	Code        string
	DisplayName string
	Rules       []generic.Rule
}

// IsOther reports whether the category carries a user-supplied name.
func (c Category) IsOther() bool { return c.Code == CodeOther }

// Key groups categories: the code, or the user's own name for "other".
func (c Category) Key() string {
	if c.IsOther() {
		return c.DisplayName
	}
	return c.Code
}

// EnabledEntry is one category that may be put out on a given day.
type EnabledEntry struct {
	Code        string `json:"type"`
	DisplayName string `json:"name"`
}

// OccurrenceGroup collects the next occurrence of every rule of the
// categories sharing a key. Occurrences is parallel to Rules.
type OccurrenceGroup struct {
	Key         string
	Rules       []generic.Rule
	Occurrences []generic.TimePoint
	Nearest     generic.TimePoint
}

// =============================================================================
// NAMES
// =============================================================================

// NameResolver maps a category code to its display name. An empty result
// means the code has no name and is skipped.
type NameResolver interface {
	Name(code string) string
}

// NameMap is a NameResolver backed by a fixed table.
type NameMap map[string]string

func (m NameMap) Name(code string) string { return m[code] }

// DefaultNames are the ja-JP names of the built-in codes.
var DefaultNames = NameMap{
	CodeBurn:      "もえるゴミ",
	CodeUnburn:    "もえないゴミ",
	CodePlastic:   "プラスチック",
	CodeBottle:    "ビン",
	CodeCan:       "カン",
	CodePetBottle: "ペットボトル",
	CodePaper:     "古紙",
	CodeResource:  "資源ごみ",
	CodeCoarse:    "粗大ごみ",
}

// displayName resolves the name of c, "" when it has none.
func displayName(c Category, names NameResolver) string {
	if c.IsOther() {
		return c.DisplayName
	}
	if names == nil {
		return ""
	}
	return names.Name(c.Code)
}
