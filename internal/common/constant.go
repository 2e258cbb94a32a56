package common

// APIKeyHeaderName is the HTTP header carrying the document-store API key.
const APIKeyHeaderName = "api-key"
