package window

import "fmt"

func ExampleGenerate() {
	w, _ := Generate(TypeHann, 4, WithPeriodic())
	fmt.Printf("%.2f %.2f %.2f %.2f\n", w[0], w[1], w[2], w[3])
	// Output:
	// 0.00 0.50 1.00 0.50
}

func ExampleEquivalentNoiseBandwidth() {
	w, _ := Generate(TypeHann, 1024, WithPeriodic())
	fmt.Printf("%.2f\n", EquivalentNoiseBandwidth(w))
	// Output:
	// 1.50
}
