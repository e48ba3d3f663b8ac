// Package errors defines the AppError type shared by every flowgen package.
//
// Each AppError carries a machine-readable code, a recommended HTTP status
// and a retryable flag. Domain constructors such as ValidationFailed,
// ExternalCall, RunTimeout and NodeBusy map scheduler outcomes onto codes
// the API layer can render directly with ToResponse.
package errors
