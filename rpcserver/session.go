package rpcserver

import "erebus-rpc/mapping"

// ClientSession is the per-client state the server core owns: the
// translation table from the client's remote property ids to locally
// allocated transient descriptors, plus the client's last-seen mapping
// version.
type ClientSession struct {
	RemoteToLocal *mapping.Mapping
}

func newClientSession() *ClientSession {
	return &ClientSession{RemoteToLocal: mapping.New()}
}
