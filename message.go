package jsonsocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
)

// ErrorPayload is the message sent to the remote end by JSONSocket.SendError
// and JSONSocket.SendEndError.
type ErrorPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewErrorPayload returns the error payload for err.
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{Success: false, Error: FormatError(err)}
}

// FormatError renders err the way JavaScript peers render Error values:
// "Error: <message>". Errors that carry a Name method use that name as the
// prefix instead.
func FormatError(err error) string {
	if err == nil {
		return "Error"
	}
	name := "Error"
	if n, ok := err.(interface{ Name() string }); ok && n.Name() != "" {
		name = n.Name()
	}
	msg := err.Error()
	if msg == "" {
		return name
	}
	return name + ": " + msg
}

// decodeMessage parses a text frame. Falsy JSON values (null, false, 0 and
// the empty string) are normalized to an empty object.
func decodeMessage(text string) (any, error) {
	var msg any
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		return nil, &InvalidJSONError{Data: text, Err: err}
	}
	if isFalsy(msg) {
		return map[string]any{}, nil
	}
	return msg, nil
}

func isFalsy(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	}
	return false
}

// encodeMessage serializes msg to the text of a single frame. The output
// matches JSON.stringify: <, > and & are not escaped, and neither are U+2028
// and U+2029.
func encodeMessage(msg any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators replaces the \u2028 and \u2029 escapes, which
// encoding/json always emits, with the characters themselves.
func unescapeLineSeparators(data []byte) string {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return string(data)
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 == len(data) {
			out = append(out, data[i])
			continue
		}
		// Escapes are two bytes or more; never split one
		if data[i+1] == 'u' && i+5 < len(data) && string(data[i+2:i+5]) == "202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			out = append(out, string(rune(0x2020+int(data[i+5]-'0')))...)
			i += 5
			continue
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return string(out)
}

// frame is a data frame as seen in log output
type frame struct {
	typ  MessageType
	data []byte
}

const maxLoggedFrameLength = 1024

func (f frame) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", f.typ.String()),
		slog.Int("len", len(f.data)),
	}
	if f.typ == MessageBinary {
		return slog.GroupValue(attrs...)
	}
	if len(f.data) > maxLoggedFrameLength {
		attrs = append(attrs, slog.String(
			"data", string(f.data[:maxLoggedFrameLength-14])+"...(truncated)",
		))
	} else {
		attrs = append(attrs, slog.String("data", string(f.data)))
	}
	return slog.GroupValue(attrs...)
}
