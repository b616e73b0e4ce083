// Command gatewayclient is a minimal CLI for the TCP gateway. It
// submits one order and prints whatever reports come back.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"
	"strings"

	lobnet "github.com/lobsim/femto/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "gateway address")
	owner := flag.String("owner", "", "owner username (required)")
	sideStr := flag.String("side", "buy", "'buy' or 'sell'")
	tifStr := flag.String("tif", "gtc", "'gtc', 'gtx', 'fok', or 'ioc'")
	assetIdx := flag.Int("asset", 0, "asset index")
	price := flag.Float64("price", 100.0, "limit price")
	qty := flag.Float64("qty", 1.0, "quantity")
	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is required.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	go readReports(conn)

	side := byte(1) // common.Buy
	if strings.EqualFold(*sideStr, "sell") {
		side = 2 // common.Sell
	}
	tif := byte(0)
	switch strings.ToLower(*tifStr) {
	case "gtx":
		tif = 1
	case "fok":
		tif = 2
	case "ioc":
		tif = 3
	}

	if err := sendNewOrder(conn, *owner, *assetIdx, side, tif, *price, *qty); err != nil {
		log.Fatalf("failed to send order: %v", err)
	}
	fmt.Printf("-> sent order asset=%d side=%s price=%.4f qty=%.4f\n", *assetIdx, *sideStr, *price, *qty)

	select {}
}

func sendNewOrder(conn net.Conn, owner string, assetIdx int, side, tif byte, price, qty float64) error {
	usernameLen := len(owner)
	total := lobnet.BaseMessageHeaderLen + lobnet.NewOrderMessageHeaderLen + usernameLen
	buf := make([]byte, total)

	binary.BigEndian.PutUint16(buf[0:2], uint16(lobnet.NewOrder))
	binary.BigEndian.PutUint16(buf[2:4], uint16(assetIdx))
	buf[4] = 0 // limit
	buf[5] = tif
	buf[6] = side
	binary.BigEndian.PutUint64(buf[7:15], math.Float64bits(price))
	binary.BigEndian.PutUint64(buf[15:23], math.Float64bits(qty))
	buf[23] = uint8(usernameLen)
	copy(buf[24:], owner)

	_, err := conn.Write(buf)
	return err
}

func readReports(conn net.Conn) {
	for {
		header := make([]byte, 32)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}
		msgType := lobnet.ReportMessageType(header[0])
		errLen := binary.BigEndian.Uint32(header[28:32])
		var errStr string
		if errLen > 0 {
			errBuf := make([]byte, errLen)
			if _, err := io.ReadFull(conn, errBuf); err == nil {
				errStr = string(errBuf)
			}
		}
		qty := math.Float64frombits(binary.BigEndian.Uint64(header[12:20]))
		price := math.Float64frombits(binary.BigEndian.Uint64(header[20:28]))
		fmt.Printf("\n[report type=%d] qty=%.4f price=%.4f %s\n", msgType, qty, price, errStr)
	}
}
