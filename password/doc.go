// Package password implements one-way credential hashing.
//
// [Bcrypt] (cost 12 by default) and [Argon2] (argon2id, PHC encoded) both
// satisfy [Hasher]. [Multi] hashes with one algorithm and verifies digests from
// any registered algorithm, reporting older digests through NeedsUpgrade so
// the caller can rehash on the next successful login.
//
// Argon2 output format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy is
// enforced by the account package.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other messauth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
