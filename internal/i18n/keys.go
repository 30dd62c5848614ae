// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Brands
	KeyBrandNotFound  = "brand.not_found"
	KeyBrandExists    = "brand.exists"
	KeyBrandSuspended = "brand.suspended"

	// Issuance
	KeyIssuanceCreated         = "issuance.created"
	KeyIssuanceQuantityClamped = "issuance.quantity_clamped"
	KeyIssuanceBatchNotFound   = "issuance.batch.not_found"
	KeyIssuanceUnitNotFound    = "issuance.unit.not_found"

	// Verification verdicts
	KeyVerifyGenuine           = "verify.genuine"
	KeyVerifyNotFound          = "verify.not_found"
	KeyVerifyTampered          = "verify.tampered"
	KeyVerifySuspicious        = "verify.suspicious"
	KeyVerifyInvalidSignature  = "verify.invalid_signature"
	KeyVerifyDecryptionFailed  = "verify.decryption_failed"
	KeyVerifyCloneSuspected    = "verify.clone_suspected"
	KeyVerifyPUFMismatch       = "verify.puf_mismatch"
	KeyVerifyUnknownIdentifier = "verify.unknown_identifier"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
