package workspace

// Depth bounds tree traversals, mirroring the zero/one/infinite depths used
// by sync-info loading.
type Depth int

const (
	DepthZero Depth = iota
	DepthOne
	DepthInfinite
)

// Walk visits r and, subject to depth, its descendants in depth-first
// pre-order. The visitor may return false to prune a subtree. Missing
// directories are skipped rather than reported: callers walk trees that are
// concurrently mutated.
func (ws *Workspace) Walk(r Resource, depth Depth, visit func(Resource) (bool, error)) error {
	descend, err := visit(r)
	if err != nil {
		return err
	}
	if !descend || depth == DepthZero || !r.Kind().IsContainer() {
		return nil
	}
	members, err := ws.Members(r)
	if err != nil {
		return nil
	}
	childDepth := DepthZero
	if depth == DepthInfinite {
		childDepth = DepthInfinite
	}
	for _, child := range members {
		if err := ws.Walk(child, childDepth, visit); err != nil {
			return err
		}
	}
	return nil
}
