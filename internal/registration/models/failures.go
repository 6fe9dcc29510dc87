package models

import pstrings "gemnet/pkg/platform/strings"

// FailureCode discriminates NIC verification failures. The set is closed:
// the gateway's contract names exactly these codes, and anything else
// (including transport-level silence) collapses to CodeSystemError.
type FailureCode string

const (
	CodePoorImageQuality  FailureCode = "POOR_IMAGE_QUALITY"
	CodeNICNumberMismatch FailureCode = "NIC_NUMBER_MISMATCH"
	CodeFaceMismatch      FailureCode = "FACE_MISMATCH"
	CodeMissingFaceImage  FailureCode = "MISSING_FACE_IMAGE"
	CodeUserNotFound      FailureCode = "USER_NOT_FOUND"
	CodeSystemError       FailureCode = "SYSTEM_ERROR"
)

// Known reports whether the code is one the contract defines.
func (c FailureCode) Known() bool {
	switch c {
	case CodePoorImageQuality, CodeNICNumberMismatch, CodeFaceMismatch,
		CodeMissingFaceImage, CodeUserNotFound, CodeSystemError:
		return true
	}
	return false
}

// NICFailure is one variant of the closed failure union: the discriminating
// code plus exactly the user-facing fields that code carries.
type NICFailure struct {
	Code        FailureCode `json:"error"`
	Message     string      `json:"userMessage"`
	Suggestions []string    `json:"suggestions"`
}

// failureDefaults carries the per-code headline and remediation copy shown
// when the gateway omits its own.
var failureDefaults = map[FailureCode]NICFailure{
	CodePoorImageQuality: {
		Code:    CodePoorImageQuality,
		Message: "Image quality is not sufficient for verification",
		Suggestions: []string{
			"Ensure your NIC image is clear and well-lit",
			"Make sure all text on the NIC is readable",
			"Try uploading a higher-resolution photo",
		},
	},
	CodeNICNumberMismatch: {
		Code:    CodeNICNumberMismatch,
		Message: "NIC number does not match registration details",
		Suggestions: []string{
			"Check that you registered with the correct NIC number",
			"Make sure the NIC in the photo is your own",
			"Go back and correct your personal information if needed",
		},
	},
	CodeFaceMismatch: {
		Code:    CodeFaceMismatch,
		Message: "Face does not match NIC photo",
		Suggestions: []string{
			"Verify that your face is clearly visible in the NIC photo",
			"Retake your face capture in good lighting",
			"Try uploading a different image of your NIC",
		},
	},
	CodeMissingFaceImage: {
		Code:    CodeMissingFaceImage,
		Message: "Could not detect a face in the NIC photo",
		Suggestions: []string{
			"Make sure the photo side of the NIC is captured",
			"Avoid glare covering the photo area",
			"Try uploading a different image of your NIC",
		},
	},
	CodeUserNotFound: {
		Code:    CodeUserNotFound,
		Message: "User registration not completed properly",
		Suggestions: []string{
			"Go back and complete the personal information step",
			"Make sure registration succeeded before verifying",
		},
	},
	CodeSystemError: {
		Code:    CodeSystemError,
		Message: "We encountered a technical issue while processing your verification.",
		Suggestions: []string{
			"Check your internet connection and try again",
			"Try using a different image format (JPG or PNG)",
			"Contact support if the problem persists",
		},
	},
}

// ClassifyNICFailure builds the failure variant for a code, preferring the
// gateway-provided message and suggestions and falling back to the per-code
// defaults. Unknown codes classify as CodeSystemError.
func ClassifyNICFailure(code FailureCode, message string, suggestions []string) NICFailure {
	if !code.Known() {
		code = CodeSystemError
	}
	failure := failureDefaults[code]
	if message != "" {
		failure.Message = message
	}
	if cleaned := pstrings.DedupeAndTrim(suggestions); len(cleaned) > 0 {
		failure.Suggestions = cleaned
	}
	return failure
}

// TransportFailure is the classification for a call that produced no usable
// response at all: timeout, refused connection, malformed body. It is
// deliberately distinct in copy from content-based rejections.
func TransportFailure() NICFailure {
	return NICFailure{
		Code:    CodeSystemError,
		Message: "Unable to connect to the server. Please check your internet connection and try again.",
		Suggestions: []string{
			"Check your internet connection",
			"Try again in a few moments",
			"Contact support if the problem persists",
		},
	}
}
