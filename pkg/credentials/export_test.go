package credentials

// SetLookupEnv replaces the environment lookup used by Resolve.
func (m *Manager) SetLookupEnv(fn func(string) (string, bool)) {
	m.lookupEnv = fn
}
