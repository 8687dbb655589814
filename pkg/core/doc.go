// Package core defines the shared language of the LeapDS client.
//
// This package contains:
//   - Host-native values (Frame, Matrix and scalar helpers)
//   - Engine type vocabulary (DataType, ValueType)
//   - The error taxonomy shared by graph construction and materialization
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
