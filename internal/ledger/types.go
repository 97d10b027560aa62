package ledger

import (
	"errors"
	"slices"
	"strconv"

	"github.com/projectamerika/mayflower/internal/opencloud"
)

var (
	ErrWarningNotFound = errors.New("warning not found")
	ErrInvalidIndex    = errors.New("warning index out of range")
)

// keyPrefix precedes the Roblox user ID in every ledger key.
const keyPrefix = "user_"

// Key returns the datastore key for a Roblox user.
func Key(userID uint64) string {
	return keyPrefix + strconv.FormatUint(userID, 10)
}

// BanRecord marks a Roblox user as banned. Its presence is the ban itself.
type BanRecord struct {
	Reason string `json:"reason"`
}

// WarningList is the ordered list of warning reasons for a user.
// It is always written as a whole.
type WarningList []string

// Snapshot is the ledger state of one user as read at a point in time.
type Snapshot struct {
	UserID uint64
	// Ban is nil when the user is not banned.
	Ban      *BanRecord
	Warnings WarningList
	// WarningsVersion is empty when no warning entry existed.
	WarningsVersion opencloud.Version
}

// WarningMutation is a change to a warning list that can be replayed on a
// newer copy of the list after a version conflict.
type WarningMutation interface {
	// Apply returns the changed list without modifying the input.
	Apply(list WarningList) (WarningList, error)
	// Name identifies the mutation in logs and metrics.
	Name() string
}

// AppendWarning adds a warning at the end of the list.
type AppendWarning struct {
	Reason string
}

func (m AppendWarning) Apply(list WarningList) (WarningList, error) {
	return append(slices.Clone(list), m.Reason), nil
}

func (m AppendWarning) Name() string {
	return "add_warning"
}

// RemoveWarning removes the warning shown at Index. Reason is the text that
// was shown there, used to find the same warning if the list moved.
type RemoveWarning struct {
	Index  int
	Reason string
}

func (m RemoveWarning) Apply(list WarningList) (WarningList, error) {
	index := m.Index
	if index < 0 || index >= len(list) || list[index] != m.Reason {
		index = slices.Index(list, m.Reason)
	}

	if index < 0 {
		return nil, ErrWarningNotFound
	}

	return slices.Delete(slices.Clone(list), index, index+1), nil
}

func (m RemoveWarning) Name() string {
	return "remove_warning"
}

// NewRemoveWarning builds the removal of the warning at index in list.
func NewRemoveWarning(list WarningList, index int) (RemoveWarning, error) {
	if index < 0 || index >= len(list) {
		return RemoveWarning{}, ErrInvalidIndex
	}

	return RemoveWarning{Index: index, Reason: list[index]}, nil
}
