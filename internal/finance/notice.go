// Package finance holds the tuition reconciliation core: summaries, discounts,
// method splits and batch validation. Everything here is a pure function of its
// inputs; persistence and remote calls live in the service layer.
package finance

// NoticeLevel grades a user-facing notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-blocking message for the cashier (toast).
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

func infoNotice(msg string) Notice  { return Notice{Level: NoticeInfo, Message: msg} }
func warnNotice(msg string) Notice  { return Notice{Level: NoticeWarning, Message: msg} }
func errorNotice(msg string) Notice { return Notice{Level: NoticeError, Message: msg} }
