// Package canvas provides the plain data types exchanged between the live
// editing session and the version-history engine.
//
// This package contains type definitions and value helpers only. It imports
// nothing internal; every other internal package may import it.
//
// Key design constraints:
//   - Shapes are opaque: an id, a type tag and an open attribute bag
//   - Shape order within a Document is draw order and is significant
//   - Canonical JSON (MarshalCanonical) is the only encoding used for
//     fingerprints and structural equality
//   - All JSON tags use snake_case, except shape attributes which are
//     passed through verbatim
package canvas
