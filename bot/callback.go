package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vapecity/vapecity-api/services"
)

// MaxCallbackData is Telegram's limit on inline button payloads, in bytes
const MaxCallbackData = 64

// Callback actions
const (
	ActionView        = "view"
	ActionPage        = "page"
	ActionStore       = "store"
	ActionBack        = "back"
	ActionAskComplete = "ask_complete"
	ActionAskCancel   = "ask_cancel"
	ActionComplete    = "complete"
	ActionCancel      = "cancel"
	ActionConfirm     = "confirm"
	ActionNoop        = "noop"
)

// ErrBadCallback is returned for payloads the seller bot did not produce
var ErrBadCallback = errors.New("unrecognised callback data")

// Callback is a decoded inline button payload. The wire form is
// positional, e.g. "view_12_today_3" or "today_store_3_0".
type Callback struct {
	Action        string
	ReservationID uint
	Scope         services.Scope
	StoreID       uint
	Page          int
}

// Encode renders the payload. It returns an error when the result would
// not fit into MaxCallbackData.
func (c Callback) Encode() (string, error) {
	var s string
	switch c.Action {
	case ActionView, ActionAskComplete, ActionAskCancel, ActionComplete, ActionCancel:
		s = fmt.Sprintf("%s_%d_%s_%d", c.Action, c.ReservationID, c.Scope, c.StoreID)
	case ActionPage:
		s = fmt.Sprintf("page_%s_%d_%d", c.Scope, c.StoreID, c.Page)
	case ActionStore:
		s = fmt.Sprintf("%s_store_%d_%d", c.Scope, c.StoreID, c.Page)
	case ActionBack:
		s = "back_" + string(c.Scope)
	case ActionConfirm:
		s = fmt.Sprintf("confirm_%d", c.ReservationID)
	case ActionNoop:
		s = ActionNoop
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrBadCallback, c.Action)
	}
	if len(s) > MaxCallbackData {
		return "", fmt.Errorf("callback data %q exceeds %d bytes", s, MaxCallbackData)
	}
	return s, nil
}

// MustEncode is Encode for payloads built from bounded ids
func (c Callback) MustEncode() string {
	s, err := c.Encode()
	if err != nil {
		panic(err)
	}
	return s
}

// actions whose payload is "<id>_<scope>_<store>"
var reservationActions = []string{ActionAskComplete, ActionAskCancel, ActionComplete, ActionCancel, ActionView}

// ParseCallback decodes data produced by Encode
func ParseCallback(data string) (Callback, error) {
	if len(data) > MaxCallbackData {
		return Callback{}, ErrBadCallback
	}
	if data == ActionNoop {
		return Callback{Action: ActionNoop}, nil
	}

	for _, action := range reservationActions {
		rest, ok := strings.CutPrefix(data, action+"_")
		if !ok {
			continue
		}
		parts := strings.Split(rest, "_")
		if len(parts) != 3 {
			return Callback{}, ErrBadCallback
		}
		id, err1 := parseID(parts[0])
		scope, err2 := parseScope(parts[1])
		store, err3 := parseID(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return Callback{}, ErrBadCallback
		}
		return Callback{Action: action, ReservationID: id, Scope: scope, StoreID: store}, nil
	}

	if rest, ok := strings.CutPrefix(data, "confirm_"); ok {
		id, err := parseID(rest)
		if err != nil {
			return Callback{}, ErrBadCallback
		}
		return Callback{Action: ActionConfirm, ReservationID: id}, nil
	}

	if rest, ok := strings.CutPrefix(data, "page_"); ok {
		parts := strings.Split(rest, "_")
		if len(parts) != 3 {
			return Callback{}, ErrBadCallback
		}
		return parseListing(ActionPage, parts[0], parts[1], parts[2])
	}

	if rest, ok := strings.CutPrefix(data, "back_"); ok {
		scope, err := parseScope(rest)
		if err != nil {
			return Callback{}, ErrBadCallback
		}
		return Callback{Action: ActionBack, Scope: scope}, nil
	}

	parts := strings.Split(data, "_")
	if len(parts) == 4 && parts[1] == "store" {
		return parseListing(ActionStore, parts[0], parts[2], parts[3])
	}
	return Callback{}, ErrBadCallback
}

func parseListing(action, scopePart, storePart, pagePart string) (Callback, error) {
	scope, err1 := parseScope(scopePart)
	store, err2 := parseID(storePart)
	page, err3 := strconv.Atoi(pagePart)
	if errors.Join(err1, err2, err3) != nil || page < 0 {
		return Callback{}, ErrBadCallback
	}
	return Callback{Action: action, Scope: scope, StoreID: store, Page: page}, nil
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrBadCallback
	}
	return uint(id), nil
}

func parseScope(s string) (services.Scope, error) {
	switch services.Scope(s) {
	case services.ScopeToday, services.ScopeActive:
		return services.Scope(s), nil
	}
	return "", ErrBadCallback
}
