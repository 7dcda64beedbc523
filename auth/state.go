package auth

// State is a step of the signed-request authorization flow.
//
//	Received -> HeadersParsed -> IdentityMatched -> ExternallyVerified -> Authorized
//
// Any step may end in Rejected.
type State int

const (
	StateReceived State = iota
	StateHeadersParsed
	StateIdentityMatched
	StateExternallyVerified
	StateAuthorized
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateHeadersParsed:
		return "headers_parsed"
	case StateIdentityMatched:
		return "identity_matched"
	case StateExternallyVerified:
		return "externally_verified"
	case StateAuthorized:
		return "authorized"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
