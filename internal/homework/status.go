package homework

import (
	"fmt"
	"strings"
)

// Status is a review status code returned by the API.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// Language selects the message table.
type Language string

const (
	LangEN Language = "en"
	LangRU Language = "ru"
)

// ParseLanguage falls back to English for anything unknown.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LangRU)) {
		return LangRU
	}
	return LangEN
}

type messages struct {
	verdicts   map[Status]string
	changed    string // homework name, verdict
	diagnostic string // error
}

var catalog = map[Language]messages{
	LangEN: {
		verdicts: map[Status]string{
			StatusApproved:  "The work has been reviewed: the reviewer liked everything. Hooray!",
			StatusReviewing: "Work taken for review by a reviewer.",
			StatusRejected:  "The work has been reviewed: the reviewer has comments.",
		},
		changed:    "Changed review status of \"%s\". %s",
		diagnostic: "Program failure: %v",
	},
	LangRU: {
		verdicts: map[Status]string{
			StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
			StatusReviewing: "Работа взята на проверку ревьюером.",
			StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
		},
		changed:    "Изменился статус проверки работы \"%s\". %s",
		diagnostic: "Сбой в работе программы: %v",
	},
}

func (l Language) messages() messages {
	if m, ok := catalog[l]; ok {
		return m
	}
	return catalog[LangEN]
}

// Verdict returns the canonical message for a status.
func (l Language) Verdict(s Status) (string, bool) {
	v, ok := l.messages().verdicts[s]
	return v, ok
}

// Diagnostic renders the operator-facing message for a failed poll cycle.
func (l Language) Diagnostic(err error) string {
	return fmt.Sprintf(l.messages().diagnostic, err)
}

// WorkItem is one homework submission record.
type WorkItem struct {
	Name   string
	Status Status
}

// Key identifies the item and its status regardless of the message language.
// Status codes never contain ':', so the pair is unambiguous.
func (w WorkItem) Key() string { return string(w.Status) + ":" + w.Name }

// ParseWorkItem checks the record shape. The status is not checked against the table.
func ParseWorkItem(item any) (WorkItem, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return WorkItem{}, newError(KindTypeMismatch, "homework is not an object (got %s)", typeName(item))
	}
	name, err := stringField(m, "homework_name")
	if err != nil {
		return WorkItem{}, err
	}
	status, err := stringField(m, "status")
	if err != nil {
		return WorkItem{}, err
	}
	return WorkItem{Name: name, Status: Status(status)}, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", newError(KindMissingField, "homework has no %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", newError(KindTypeMismatch, "homework field %q is not a string (got %s)", key, typeName(v))
	}
	return s, nil
}

// FormatStatus renders the status-change message for one work item.
func FormatStatus(item any, lang Language) (string, error) {
	wi, err := ParseWorkItem(item)
	if err != nil {
		return "", err
	}
	verdict, ok := lang.Verdict(wi.Status)
	if !ok {
		return "", newError(KindUnknownStatus, "unknown homework status %q", string(wi.Status))
	}
	return fmt.Sprintf(lang.messages().changed, wi.Name, verdict), nil
}
