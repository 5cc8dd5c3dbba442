package proxy

const (
	ethertypeIPv4 = 0x0800
	ethertypeIPv6 = 0x86DD

	protoTCP  = 6
	protoUDP  = 17
	protoICMPv6 = 58
)
