package models

// PagePermission is the grant for one (user, page) pair.
type PagePermission struct {
	Base
	UserID    string `gorm:"type:uuid;not null;uniqueIndex:idx_page_permissions_user_page" json:"userId"`
	User      *User  `json:"user,omitempty"`
	PageID    string `gorm:"type:uuid;not null;uniqueIndex:idx_page_permissions_user_page" json:"pageId"`
	Page      *Page  `json:"page,omitempty"`
	CanView   bool   `gorm:"not null;default:false" json:"canView"`
	CanEdit   bool   `gorm:"not null;default:false" json:"canEdit"`
	CanCreate bool   `gorm:"not null;default:false" json:"canCreate"`
	CanDelete bool   `gorm:"not null;default:false" json:"canDelete"`
}

func (p *PagePermission) Flags() Flags {
	return Flags{CanView: p.CanView, CanEdit: p.CanEdit, CanCreate: p.CanCreate, CanDelete: p.CanDelete}
}

func (p *PagePermission) SetFlags(f Flags) {
	p.CanView = f.CanView
	p.CanEdit = f.CanEdit
	p.CanCreate = f.CanCreate
	p.CanDelete = f.CanDelete
}

// Flags are the four independent capability booleans of a grant.
type Flags struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanCreate bool `json:"can_create"`
	CanDelete bool `json:"can_delete"`
}

// AllFlags is what a superadmin effectively holds on every page.
var AllFlags = Flags{CanView: true, CanEdit: true, CanCreate: true, CanDelete: true}

func (f Flags) Any() bool {
	return f.CanView || f.CanEdit || f.CanCreate || f.CanDelete
}

// Level is the ordinal view of a grant: none < view < edit < create < delete.
type Level string

const (
	LevelNone   Level = "none"
	LevelView   Level = "view"
	LevelEdit   Level = "edit"
	LevelCreate Level = "create"
	LevelDelete Level = "delete"
)

var levelOrder = []Level{LevelNone, LevelView, LevelEdit, LevelCreate, LevelDelete}

func (l Level) rank() int {
	for i, lv := range levelOrder {
		if lv == l {
			return i
		}
	}
	return -1
}

func (l Level) Valid() bool {
	return l.rank() >= 0
}

// FlagsFromLevel cascades a level downward: every flag at or below it is set.
func FlagsFromLevel(level Level) Flags {
	r := level.rank()
	return Flags{
		CanView:   r >= LevelView.rank(),
		CanEdit:   r >= LevelEdit.rank(),
		CanCreate: r >= LevelCreate.rank(),
		CanDelete: r >= LevelDelete.rank(),
	}
}

// LevelFromFlags returns the level the flags encode. ok is false when the flags
// were set independently and do not correspond to any level, e.g. delete without edit.
func LevelFromFlags(f Flags) (level Level, ok bool) {
	for i := len(levelOrder) - 1; i >= 0; i-- {
		if FlagsFromLevel(levelOrder[i]) == f {
			return levelOrder[i], true
		}
	}
	return LevelNone, false
}
