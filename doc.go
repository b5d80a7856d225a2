// Package outbound encrypts outgoing mail for every recipient it is
// addressed to and submits the result to the mail API.
//
// A send resolves each recipient's preferences (internal key, external key,
// password or cleartext), renders one body per required MIME type, groups
// recipients into the fewest packages that can share a ciphertext, encrypts
// each package once with a fresh session key and wraps that key per
// recipient. Each package carries at most one signature.
//
// Basic usage:
//
//	sender, err := outbound.New("your-api-key",
//	    outbound.WithContactBook("contacts.yaml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := sender.Send(ctx, &outbound.Message{
//	    ID:     draftID,
//	    From:   "alice@example.com",
//	    Format: outbound.FormatHTML,
//	    Body:   "<p>Hello</p>",
//	    Recipients: []outbound.Recipient{
//	        {Address: "bob@example.com", Role: outbound.RoleTo},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Sent:", res.ID)
//
// A submission that fails with a retryable error runs the whole pipeline
// again; previously generated ciphertext is never resubmitted.
package outbound
