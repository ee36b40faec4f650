// Package ally provides a client for the Danfoss Ally cloud API.
//
// The Ally API exposes smart thermostats and related devices registered
// to a Danfoss developer account. Credentials come from the developer
// portal and are exchanged for a short-lived bearer token, which every
// subsequent call carries.
//
// Typical use:
//
//	creds, err := ally.CredentialsFromEnv()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := ally.New(creds)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := client.GetToken(ctx); err != nil {
//		log.Fatal(err)
//	}
//	if _, err := client.GetDevices(ctx); err != nil {
//		log.Fatal(err)
//	}
//	client.PrintRoomTemperatures(nil)
//
// GetToken must succeed before GetDevices; calling out of order returns
// ErrNotAuthenticated without touching the network. Tokens are not
// refreshed implicitly. Callers decide when to re-invoke GetToken, for
// example from a polling loop that watches NeedsRefresh.
//
// All failures are classified: credential problems surface as sentinel
// errors at construction, vendor rejections as *AuthError, connectivity
// problems (including timeouts) as *TransportError, and unparseable
// response bodies as *DecodeError. The Is* predicates in this package
// match the wrapped forms.
//
// A Client is safe for concurrent use.
package ally
