package sidecarssr

const (
	errorCodeHandlerUnknown   = "ssr.handler_unknown"
	errorCodeHandlerInvalid   = "ssr.handler_invalid"
	errorCodeMalformedPayload = "ssr.malformed_payload"
)
