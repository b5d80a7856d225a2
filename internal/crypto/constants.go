package crypto

const (
	// KeyPacketContext is the HKDF info prefix used when deriving the key that
	// seals a session key inside a key packet.
	KeyPacketContext = "outbound:keypacket:v1"

	// PasswordContext is bound as additional data when a session key is sealed
	// under a password-derived key.
	PasswordContext = "outbound:password:v1"

	// MLKEMPublicKeySize is the size of an ML-KEM-768 public key in bytes.
	MLKEMPublicKeySize = 1184
	// MLKEMSecretKeySize is the size of an ML-KEM-768 secret key in bytes.
	MLKEMSecretKeySize = 2400
	// MLKEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	MLKEMCiphertextSize = 1088
	// MLKEMSharedKeySize is the size of the shared secret from ML-KEM-768 in bytes.
	MLKEMSharedKeySize = 32

	// MLDSAPublicKeySize is the size of an ML-DSA-65 public key in bytes.
	MLDSAPublicKeySize = 1952
	// MLDSASignatureSize is the size of an ML-DSA-65 signature in bytes.
	MLDSASignatureSize = 3309

	// SessionKeySize is the size of every generated session key in bytes.
	SessionKeySize = 32

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// SecretBoxNonceSize is the size of an XSalsa20-Poly1305 nonce in bytes.
	SecretBoxNonceSize = 24

	// PasswordSaltSize is the size of the Argon2id salt in bytes.
	PasswordSaltSize = 16

	// PublicKeyOffset is the byte offset where the public key is embedded
	// within an ML-KEM-768 secret key.
	PublicKeyOffset = 1152
)

// Argon2id parameters for password-derived keys.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// AlgsCiphersuite is the canonical string representation of the key packet suite.
var AlgsCiphersuite = "ML-KEM-768:ML-DSA-65:AES-256-GCM:HKDF-SHA-512"
