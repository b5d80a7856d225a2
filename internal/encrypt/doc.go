// Package encrypt is the only part of the send pipeline that touches key
// material. For every top package it generates one session key, encrypts the
// body once, signs it at most once and wraps the session key once per
// recipient. Attachments are encrypted once per send attempt and their keys
// are wrapped per recipient in the same way.
package encrypt
