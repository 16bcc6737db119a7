package v1

// Errors
const (
	UnknownErrorCode    = 0
	UnknownErrorMessage = "unknown error"

	InvalidRequestCode    = 1001
	InvalidRequestMessage = "invalid request"
	InvalidIDCode         = 1002
	InvalidIDMessage      = "invalid id"

	UnknownPartnerCode         = 2001
	UnknownPartnerMessage      = "unknown delivery partner"
	MissingPartnerTokenCode    = 2002
	MissingPartnerTokenMessage = "partner token is required"
	SyncNotFoundCode           = 2003
	SyncNotFoundMessage        = "sync not found"
	SyncAlreadyFinishedCode    = 2004
	SyncAlreadyFinishedMessage = "sync already finished"
	LocationInputEmptyCode     = 3001
	LocationInputEmptyMessage  = "location text is empty"
	CityNotFoundCode           = 3002
	CityNotFoundMessage        = "city not found"
	LocationsNotLoadedCode     = 3003
	LocationsNotLoadedMessage  = "locations could not be loaded"
)

type ErrorCode int
type ErrorMessage string

type ErrorStruct struct {
	ErrorCode    `json:"error_code"`
	ErrorMessage `json:"error_message"`
} // @name ErrorStruct

type ValidationErrorStruct struct {
	ErrorCode    int               `json:"error_code"`
	ErrorMessage string            `json:"error_message"`
	Errors       []ValidationError `json:"validation_errors"`
}

type ValidationError struct {
	FieldKey     string `json:"field_key"`
	ErrorMessage string `json:"error_message"`
}

var errorMessages = map[ErrorCode]ErrorMessage{
	InvalidRequestCode:      InvalidRequestMessage,
	InvalidIDCode:           InvalidIDMessage,
	UnknownPartnerCode:      UnknownPartnerMessage,
	MissingPartnerTokenCode: MissingPartnerTokenMessage,
	SyncNotFoundCode:        SyncNotFoundMessage,
	SyncAlreadyFinishedCode: SyncAlreadyFinishedMessage,
	LocationInputEmptyCode:  LocationInputEmptyMessage,
	CityNotFoundCode:        CityNotFoundMessage,
	LocationsNotLoadedCode:  LocationsNotLoadedMessage,
}

func getErrorStruct(code ErrorCode) *ErrorStruct {
	message, ok := errorMessages[code]
	if !ok {
		return &ErrorStruct{
			ErrorCode:    UnknownErrorCode,
			ErrorMessage: UnknownErrorMessage,
		}
	}

	return &ErrorStruct{
		ErrorCode:    code,
		ErrorMessage: message,
	}
}
