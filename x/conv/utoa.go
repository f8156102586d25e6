package conv

// Utoa writes base-10 representation of n into buf and returns the used slice.
// buf should be length >= 20 for uint64.
func Utoa(buf []byte, n uint64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
	} else {
		for n > 0 && i > 0 {
			i--
			buf[i] = byte('0' + (n % 10))
			n /= 10
		}
	}
	return buf[i:]
}

// AppendUint appends the decimal form of n to dst.
func AppendUint(dst []byte, n uint64) []byte {
	var b [20]byte
	return append(dst, Utoa(b[:], n)...)
}

// AppendPad2 appends n as exactly two digits (clock fields). Values above 99 keep
// their last two digits.
func AppendPad2(dst []byte, n int) []byte {
	if n < 0 {
		n = -n
	}
	n %= 100
	return append(dst, byte('0'+n/10), byte('0'+n%10))
}

// Clock formats hh:mm without fmt.
func Clock(hour, minute int) string {
	var b [5]byte
	out := AppendPad2(b[:0], hour)
	out = append(out, ':')
	out = AppendPad2(out, minute)
	return string(out)
}
