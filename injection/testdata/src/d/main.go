package d

func strcpy(dst []byte, src string) {}

func run(argv []string) {
	buf := make([]byte, 16)
	strcpy(buf, argv[1]) // want "tainted data reaches argument 1 of d.strcpy"
	strcpy(buf, "ok")
}
