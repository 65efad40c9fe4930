package workspace

// BeginDeltaDelivery marks the workspace as delivering a resource-change
// delta. While a delivery is in progress, bulk sync-info loads are refused
// so cache population cannot race the notification walk. Hosts call this
// around their change-event dispatch.
func (ws *Workspace) BeginDeltaDelivery() {
	ws.delta.Add(1)
}

// EndDeltaDelivery ends a delta delivery started with BeginDeltaDelivery.
func (ws *Workspace) EndDeltaDelivery() {
	ws.delta.Add(-1)
}

// InDeltaDelivery reports whether a delta delivery is in progress.
func (ws *Workspace) InDeltaDelivery() bool {
	return ws.delta.Load() > 0
}
