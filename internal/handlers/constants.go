package handlers

const (
	// maxBodyBytes bounds JSON request bodies
	maxBodyBytes = 1 << 20

	// maxSpeechTextRunes bounds the text accepted by the speech endpoint
	maxSpeechTextRunes = 500

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrLearnerNotFound     = "Learner not found"
	ErrInternalServerError = "Internal server error"
)
