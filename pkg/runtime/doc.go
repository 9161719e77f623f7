// Package runtime is the boundary to the container daemon. It pulls
// images and drives container lifecycles (create, start, stop) for the
// worker, translating daemon failures into the typed errors the rest of
// the system dispatches on.
package runtime
