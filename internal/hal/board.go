package hal

// Pin assignment of the reference board.
const (
	PinUARTTX = 0
	PinUARTRX = 1

	PinI2SBCLK  = 2
	PinI2SLRCLK = 3
	PinI2SDOUT  = 4
	PinI2SDIN   = 5

	PinI2CSDA = 6
	PinI2CSCL = 7

	PinStompLED    = 8
	PinStompSwitch = 9

	PinDisplayReset = 10
	PinDisplayDC    = 11
	PinDisplayCS    = 13
	PinDisplaySCK   = 14
	PinDisplayTX    = 15

	PinADC0    = 26
	PinADC1    = 27
	PinADC2    = 28
	PinADCExpr = 29
)

// Display geometry.
const (
	DisplayWidth  = 128
	DisplayHeight = 64
)

// MIDIBaud is the serial MIDI rate on the UART pins.
const MIDIBaud = 31250

// Pin names one board pin for reporting.
type Pin struct {
	Name   string
	Number int
}

// Pins returns the board pin map in pin order.
func Pins() []Pin {
	return []Pin{
		{"uart_tx", PinUARTTX},
		{"uart_rx", PinUARTRX},
		{"i2s_bclk", PinI2SBCLK},
		{"i2s_lrclk", PinI2SLRCLK},
		{"i2s_dout", PinI2SDOUT},
		{"i2s_din", PinI2SDIN},
		{"i2c_sda", PinI2CSDA},
		{"i2c_scl", PinI2CSCL},
		{"stomp_led", PinStompLED},
		{"stomp_switch", PinStompSwitch},
		{"display_reset", PinDisplayReset},
		{"display_dc", PinDisplayDC},
		{"display_cs", PinDisplayCS},
		{"display_sck", PinDisplaySCK},
		{"display_tx", PinDisplayTX},
		{"adc0", PinADC0},
		{"adc1", PinADC1},
		{"adc2", PinADC2},
		{"adc_expr", PinADCExpr},
	}
}
