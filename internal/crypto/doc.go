// Package crypto provides the cryptographic primitives of the outbound send
// pipeline: session keys, key packets, password-derived keys and signatures.
//
// # Algorithm Suite
//
//   - AES-256-GCM or XSalsa20-Poly1305 (NaCl secretbox): symmetric encryption
//     of message bodies and attachments under a single-use [SessionKey]. The
//     algorithm is chosen by the caller, not by each call site.
//
//   - ML-KEM-768 (NIST FIPS 203): key encapsulation to a recipient public key.
//     [WrapSessionKey] turns a session key into a key packet addressed to one
//     recipient; [UnwrapSessionKey] reverses it with the recipient [Keypair].
//
//   - HKDF-SHA-512 (RFC 5869): derivation of the key that seals the session
//     key inside a key packet, salted with the KEM ciphertext.
//
//   - Argon2id: stretching of message passwords for password-protected sends
//     ([DerivePasswordKey], [WrapSessionKeyWithKey]).
//
//   - ML-DSA-65 (NIST FIPS 204): detached signatures. [SelectSigningKey]
//     deterministically picks one key out of several so that a message carries
//     a single signature.
//
// # Nonces
//
// Every encryption draws a fresh random nonce. A session key is never used for
// more than one plaintext.
//
// # Base64 Encoding
//
//   - [ToBase64]/[FromBase64]: standard base64 with padding, used on the wire.
//   - [ToBase64URL]/[FromBase64URL]: URL-safe base64 without padding, used for
//     displaying and storing public keys.
package crypto
