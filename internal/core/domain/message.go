package domain

// Relay sentinels. They are the only wire texts with a protocol meaning.
const (
	EndSentinel    = "--- END ---"
	FailedSentinel = "--- FAILED ---"
	SuccessLine    = "Build completed successfully."
)

// MessageKind tags a relay message.
type MessageKind int

const (
	// LogLine carries one line of build output.
	LogLine MessageKind = iota
	// Completed marks a successful end of stream.
	Completed
	// Aborted marks a failed or interrupted stream.
	Aborted
)

func (k MessageKind) String() string {
	switch k {
	case LogLine:
		return "log"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Message is one decoded relay message.
type Message struct {
	Kind MessageKind
	// Text is the log line for LogLine and the reason for Aborted.
	Text string
}

// Log returns a LogLine message.
func Log(text string) Message {
	return Message{Kind: LogLine, Text: text}
}

// Abort returns an Aborted message with the given reason.
func Abort(reason string) Message {
	return Message{Kind: Aborted, Text: reason}
}

// Complete returns a Completed message.
func Complete() Message {
	return Message{Kind: Completed}
}

// Encode maps a message to its wire text. A log line that reads exactly like a
// sentinel is sent with a leading space, so it never decodes as one.
func Encode(msg Message) string {
	switch msg.Kind {
	case Completed:
		return EndSentinel
	case Aborted:
		return FailedSentinel
	}
	if msg.Text == EndSentinel || msg.Text == FailedSentinel {
		return " " + msg.Text
	}
	return msg.Text
}

// Decode maps one wire text to its message.
func Decode(text string) Message {
	switch text {
	case EndSentinel:
		return Complete()
	case FailedSentinel:
		return Abort("worker reported failure")
	default:
		return Log(text)
	}
}
