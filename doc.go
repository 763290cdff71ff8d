// Package hssp implements the HSSP multi-file archive container format.
//
// HSSP bundles any number of files and directories, together with per-file
// metadata, into a single binary buffer. Five on-disk revisions exist:
//
//   - v1 ("wfld"): 64-byte header with the "SFA\x00" magic
//   - v2 ("rfld"): 64-byte header with the "HSSP" magic
//   - v3 ("dhdr"): 128-byte header, otherwise identical to v2
//   - v4 ("idxd"): 128-byte header, explicit version byte, a separate file index,
//     pluggable compression and multi-volume splitting
//   - v5 ("flgd"): v4 plus a flags byte announcing encryption, compression and splitting
//
// Every revision supports optional password-based encryption (AES-256-CBC with a
// SHA-256 derived key) and stores a MurmurHash3 checksum of the on-disk body.
//
// # Basic Usage
//
// To create an archive:
//
//	files := []hssp.File{
//		hssp.NewFile("readme.txt", []byte("Hello, world!")),
//		hssp.NewDirectory("assets"),
//	}
//	buf, err := hssp.Create(files, hssp.WithCompression("zstd"), hssp.WithPassword("secret"))
//
// To read it back:
//
//	a, err := hssp.Parse(buf, hssp.WithReadPassword("secret"))
//	for _, f := range a.Files {
//		fmt.Println(f.Path, len(f.Contents))
//	}
//
// Parse detects the revision from the buffer. [Metadata] inspects an archive
// without failing on checksum or password problems, and [CreateSplit] / [Join]
// spread one logical archive over several volumes linked by a checksum chain.
//
// # Compression
//
// Compression algorithms live in a [Registry]. [DefaultRegistry] knows deflate,
// gzip, zstd, lz4, brotli and lzma; custom algorithms are added with
// [Registry.Register]. Only v4 and v5 archives may be compressed.
//
// # Security Considerations
//
// The codec works on complete in-memory buffers. Decoding enforces configurable
// [Limits] on file counts and decompressed sizes, and the checksum is verified
// before any decryption or decompression is attempted.
package hssp
