package testutil

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/mazen160/go-random"
)

// NewRand returns a pseudo random source with a random seed, the seed is
// logged so a failing run can be reproduced with NewSeededRand.
func NewRand(t interface{ Logf(string, ...any) }) (*rand.Rand, int64) {
	str, err := random.String(16)
	if err != nil {
		panic(err)
	}
	h := fnv.New64a()
	h.Write([]byte(str))
	seed := int64(h.Sum64())
	t.Logf("random seed: %d", seed)
	return NewSeededRand(seed), seed
}

func NewSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// RandomSwitch returns a function that will output various integers at different weights.
//
// Ex. RandomSwitch(2, 3, 5) will return a function that will output:
//   - `0` 20% of the time
//   - `1` 30% of the time
//   - `2` 50% of the time
func RandomSwitch(weights ...int) func(rndm *rand.Rand) int {
	if len(weights) == 0 {
		panic("a random switch must have at least 1 probability")
	}

	var sum int
	for _, p := range weights {
		if p == 0 {
			panic("cannot have weight that is 0")
		}
		sum += p
	}

	return func(rndm *rand.Rand) int {
		value := rndm.Intn(sum)

		threshold := 0
		for i := 0; i < len(weights); i++ {
			threshold += weights[i]
			if value < threshold {
				return i
			}
		}

		panic(fmt.Sprintf("random value generated was out of bounds: %d", value))
	}
}

// RandomOrderID generates an amazon style order id, ex. 405-1234567-7654321.
func RandomOrderID(rndm *rand.Rand) string {
	digits := func(n int) string {
		var out strings.Builder
		for range n {
			out.WriteByte(byte('0' + rndm.Intn(10)))
		}
		return out.String()
	}
	return fmt.Sprintf("%s-%s-%s", digits(3), digits(7), digits(7))
}

var italianMonths = []string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

// RandomShopOrder generates a well formed order placed in year.
func RandomShopOrder(rndm *rand.Rand, year int) ShopOrder {
	items := make([]ShopItem, 1+rndm.Intn(3))
	for i := range items {
		items[i] = ShopItem{
			Title:    fmt.Sprintf("Item %s", RandomString(rndm, 8)),
			Quantity: 1 + rndm.Intn(3),
			Price:    fmt.Sprintf("%d,%02d", rndm.Intn(200), rndm.Intn(100)),
		}
	}
	return ShopOrder{
		ID:     RandomOrderID(rndm),
		Date:   fmt.Sprintf("%d %s %d", 1+rndm.Intn(28), italianMonths[rndm.Intn(12)], year),
		Total:  fmt.Sprintf("%d,%02d €", rndm.Intn(500), rndm.Intn(100)),
		Status: "Consegnato",
		Items:  items,
	}
}

var brokenOrder = RandomSwitch(8, 1, 1)

// RandomShop generates a shop spanning the given years where roughly a fifth
// of the orders are broken (no id or no total) and so must be rejected.
func RandomShop(rndm *rand.Rand, years []int) map[int][][]ShopOrder {
	out := map[int][][]ShopOrder{}
	for _, year := range years {
		pages := make([][]ShopOrder, rndm.Intn(4))
		for p := range pages {
			orders := make([]ShopOrder, 1+rndm.Intn(5))
			for i := range orders {
				o := RandomShopOrder(rndm, year)
				switch brokenOrder(rndm) {
				case 1:
					o.ID = ""
				case 2:
					o.Total = ""
				}
				orders[i] = o
			}
			pages[p] = orders
		}
		out[year] = pages
	}
	return out
}

// RandomString generates a random lowercase string given the pseudo random source.
func RandomString(rndm *rand.Rand, length int) string {
	str := make([]rune, length)
	for i := range length {
		str[i] = 'a' + rune(rndm.Intn(26))
	}
	return string(str)
}
