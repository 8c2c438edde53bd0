// Package client implements a client for the aesdlog line protocol.
//
// Usage Example:
//
//	c, err := client.NewLogClient(common.ClientConfig{
//	  Endpoint:      "localhost:9000",
//	  Transport:     common.TransportTypeTCP,
//	  TimeoutSecond: 5,
//	}, tcp.NewTCPClientTransport())
//	if err != nil {
//	  log.Fatalf("failed to create client: %v", err)
//	}
//	defer c.Close()
//
//	content, err := c.Send([]byte("hello"))
package client
