// Package render produces the body representations a send attempt needs: the
// authored document itself, its plaintext downgrade, and a multipart/mixed
// tree when HTML travels together with attachments.
//
// All output is a pure function of the document and its attachments, so two
// recipients requiring the same MIME type always see identical bytes.
package render
