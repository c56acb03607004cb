// Package hugoapi provides a client for the coaching conversation backend.
//
// The backend exposes two reply paths: a token-streaming endpoint that emits
// newline-delimited "data: {json}" records, and plain blocking endpoints. The
// client consumes the streaming path when it can, and transparently falls
// back to a single blocking request when the stream cannot be established,
// delivering the full reply through the same callback shape.
//
// Streaming:
//
//	client := hugoapi.NewClient("https://api.example.com")
//	handle, err := client.SendStream(ctx, sessionID, "Hallo", hugoapi.StreamCallbacks{
//	    OnToken: func(tok string) { fmt.Print(tok) },
//	    OnDone:  func(meta *hugoapi.DoneMeta) { fmt.Println() },
//	    OnError: func(err error) { log.Println(err) },
//	})
//	if err != nil {
//	    return err
//	}
//	defer handle.Cancel()
//	<-handle.Done()
//
// The client also carries the blocking collaborator contracts: session
// creation, message send, media credential bootstrap for the audio room and
// the avatar stream, the read-only technique taxonomy, and evaluation
// forwarding (the evaluation payload is opaque to this package).
package hugoapi
