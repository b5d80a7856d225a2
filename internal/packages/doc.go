// Package packages groups resolved recipients into top packages and fills
// each package with per-address entries.
//
// A top package is identified by its [Key]: the MIME type of the
// representation it carries and the key-derivation context of its session
// key. Recipients with different schemes share one package whenever they
// share a key, so the body is encrypted once per key. Only the password
// context, whose session key is wrapped under a password-derived key, forces
// a package of its own.
//
// Nothing in this package performs cryptography. Build and Attach are
// deterministic and do not depend on the order addresses are visited.
package packages
