package alerts

import (
	"log"

	"github.com/google/uuid"
)

// ToastVariant selects how a toast is styled
type ToastVariant string

const (
	ToastDefault     ToastVariant = "default"
	ToastDestructive ToastVariant = "destructive"
)

// Toast is a transient in-app message
type Toast struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Variant     ToastVariant `json:"variant"`
}

// Toaster is the fire-and-forget toast port
type Toaster interface {
	Toast(t Toast)
}

// NewToast builds a toast with a fresh id
func NewToast(variant ToastVariant, title, description string) Toast {
	return Toast{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Variant:     variant,
	}
}

// LogToaster prints toasts through a logger
type LogToaster struct {
	logger *log.Logger
}

// NewLogToaster creates a toaster writing to logger (log.Default when nil)
func NewLogToaster(logger *log.Logger) *LogToaster {
	if logger == nil {
		logger = log.Default()
	}
	return &LogToaster{logger: logger}
}

// Toast implements Toaster
func (l *LogToaster) Toast(t Toast) {
	marker := "[toast]"
	if t.Variant == ToastDestructive {
		marker = "[toast!]"
	}
	l.logger.Printf("%s %s: %s", marker, t.Title, t.Description)
}
