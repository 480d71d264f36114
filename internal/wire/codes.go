package wire

import "net/http"

// Error codes understood by tRPC v9 clients.
const (
	CodeParseError          = "PARSE_ERROR"
	CodeBadRequest          = "BAD_REQUEST"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotSupported  = "METHOD_NOT_SUPPORTED"
	CodeTimeout             = "TIMEOUT"
	CodeConflict            = "CONFLICT"
	CodePreconditionFailed  = "PRECONDITION_FAILED"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeClientClosedRequest = "CLIENT_CLOSED_REQUEST"
)

var jsonRPCCodes = map[string]int{
	CodeParseError:          -32700,
	CodeBadRequest:          -32600,
	CodeInternalServerError: -32603,
	CodeUnauthorized:        -32001,
	CodeForbidden:           -32003,
	CodeNotFound:            -32004,
	CodeMethodNotSupported:  -32005,
	CodeTimeout:             -32008,
	CodeConflict:            -32009,
	CodePreconditionFailed:  -32012,
	CodePayloadTooLarge:     -32013,
	CodeClientClosedRequest: -32099,
}

var httpStatuses = map[string]int{
	CodeParseError:          http.StatusBadRequest,
	CodeBadRequest:          http.StatusBadRequest,
	CodeInternalServerError: http.StatusInternalServerError,
	CodeUnauthorized:        http.StatusUnauthorized,
	CodeForbidden:           http.StatusForbidden,
	CodeNotFound:            http.StatusNotFound,
	CodeMethodNotSupported:  http.StatusMethodNotAllowed,
	CodeTimeout:             http.StatusRequestTimeout,
	CodeConflict:            http.StatusConflict,
	CodePreconditionFailed:  http.StatusPreconditionFailed,
	CodePayloadTooLarge:     http.StatusRequestEntityTooLarge,
	CodeClientClosedRequest: 499,
}

// JSONRPCCode maps a string code to its numeric JSON-RPC code.
func JSONRPCCode(code string) int {
	if n, ok := jsonRPCCodes[code]; ok {
		return n
	}
	return jsonRPCCodes[CodeInternalServerError]
}

// HTTPStatus maps a string code to the HTTP status the server responds with.
func HTTPStatus(code string) int {
	if s, ok := httpStatuses[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// BatchStatus folds per-call statuses into the response status: the shared
// status when all calls agree, 207 otherwise.
func BatchStatus(statuses []int) int {
	if len(statuses) == 0 {
		return http.StatusOK
	}
	first := statuses[0]
	for _, s := range statuses[1:] {
		if s != first {
			return http.StatusMultiStatus
		}
	}
	return first
}
