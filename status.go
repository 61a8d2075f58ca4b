package jsonsocket

import "strconv"

// StatusCode is a WebSocket close status code.
// See https://www.rfc-editor.org/rfc/rfc6455#section-7.4
type StatusCode int

const (
	// StatusNormalClosure means the purpose of the connection was fulfilled.
	StatusNormalClosure StatusCode = 1000

	// StatusGoingAway means an endpoint is going away, for example a server
	// shutting down.
	StatusGoingAway StatusCode = 1001

	// StatusProtocolError is sent when the peer violated the protocol.
	StatusProtocolError StatusCode = 1002

	// StatusUnsupportedData is sent when a frame type cannot be accepted.
	StatusUnsupportedData StatusCode = 1003

	// StatusNoStatusRcvd is never sent over the wire. It is reported when a
	// close frame carried no status code.
	StatusNoStatusRcvd StatusCode = 1005

	// StatusAbnormalClosure is never sent over the wire. It is reported when
	// the connection dropped without a close frame.
	StatusAbnormalClosure StatusCode = 1006

	// StatusInvalidFramePayloadData is sent when a message is not consistent
	// with its type, such as invalid UTF-8 in a text frame.
	StatusInvalidFramePayloadData StatusCode = 1007

	// StatusPolicyViolation is a generic code for rejected messages.
	StatusPolicyViolation StatusCode = 1008

	// StatusMessageTooBig is sent when a message is too large to process.
	StatusMessageTooBig StatusCode = 1009

	// StatusMandatoryExtension is sent by a client when the server did not
	// negotiate a required extension.
	StatusMandatoryExtension StatusCode = 1010

	// StatusInternalError is sent when the server hit an unexpected condition.
	StatusInternalError StatusCode = 1011

	// StatusServiceRestart means the server is restarting.
	StatusServiceRestart StatusCode = 1012

	// StatusTryAgainLater means the server is overloaded.
	StatusTryAgainLater StatusCode = 1013

	// StatusBadGateway is sent by a gateway that got an invalid response
	// upstream.
	StatusBadGateway StatusCode = 1014
)

var statusNames = map[StatusCode]string{
	StatusNormalClosure:           "NormalClosure",
	StatusGoingAway:               "GoingAway",
	StatusProtocolError:           "ProtocolError",
	StatusUnsupportedData:         "UnsupportedData",
	StatusNoStatusRcvd:            "NoStatusRcvd",
	StatusAbnormalClosure:         "AbnormalClosure",
	StatusInvalidFramePayloadData: "InvalidFramePayloadData",
	StatusPolicyViolation:         "PolicyViolation",
	StatusMessageTooBig:           "MessageTooBig",
	StatusMandatoryExtension:      "MandatoryExtension",
	StatusInternalError:           "InternalError",
	StatusServiceRestart:          "ServiceRestart",
	StatusTryAgainLater:           "TryAgainLater",
	StatusBadGateway:              "BadGateway",
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return "Status" + name
	}
	return "StatusCode(" + strconv.Itoa(int(s)) + ")"
}
