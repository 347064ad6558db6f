// Package awsign signs S3 requests on the client side.
//
// A Request is built with NewRequest and its chained setters and then handed
// to a Signer, which either adds an Authorization header (Sign) or produces a
// presigned URL (Presign). Two variants are supported: VariantV4, the
// AWS4-HMAC-SHA256 derived-key scheme, and VariantV2, the legacy HMAC-SHA1
// scheme. Presigned URLs always use VariantV4.
//
// Responses are interpreted with ClassifyError, which turns any non-2xx
// exchange into a *ProtocolError carrying the fields of the XML error body.
package awsign
