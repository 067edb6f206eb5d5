package domain

// MFASetupResponse is returned once when TOTP enrollment starts. The
// secret and its scannable representation are never retrievable again.
type MFASetupResponse struct {
	Secret            string `json:"secret"`             // Base32 encoded TOTP secret
	ProvisioningURI   string `json:"provisioning_uri"`   // otpauth:// URL
	ProvisioningImage string `json:"provisioning_image"` // base64 PNG of the QR code
	Issuer            string `json:"issuer"`
	Account           string `json:"account"`
}

// MFAEnableResponse carries the backup codes generated at enablement.
// They are returned exactly once and stored only as fingerprints.
type MFAEnableResponse struct {
	MFAEnabled  bool     `json:"mfa_enabled"` // always true
	BackupCodes []string `json:"backup_codes"`
}

// MFAVerifyResult reports a successful second-factor check and whether a
// single-use backup code was consumed to satisfy it.
type MFAVerifyResult struct {
	Verified       bool `json:"verified"`
	BackupCodeUsed bool `json:"backup_code_used"`
}
