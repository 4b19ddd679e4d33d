package loader_test

import (
	"context"
	"fmt"
	"image"

	"github.com/vnykmshr/imgflow/pkg/loader"
	"github.com/vnykmshr/imgflow/pkg/loader/loadertest"
)

func ExampleLoader_Load() {
	provider := loadertest.NewProvider().
		Script("IMG_0001", loadertest.Partial(32), loadertest.Partial(128), loadertest.Final(512))

	l, err := loader.New(provider, loader.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	seq, err := l.Load(ctx, "IMG_0001", loader.DefaultParams(image.Pt(512, 512)))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer seq.Close()

	for res, err := range seq.All(ctx) {
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("%dpx degraded=%t\n", res.Image.Bounds().Dx(), res.Degraded)
	}
	provider.Wait()

	// Output:
	// 32px degraded=true
	// 128px degraded=true
	// 512px degraded=false
}

func ExampleLoader_LoadFinal() {
	provider := loadertest.NewProvider().
		Script("IMG_0002", loadertest.Partial(64), loadertest.Final(256))

	l, err := loader.New(provider, loader.Config{Capacity: 4, Name: "thumbnails"})
	if err != nil {
		fmt.Println(err)
		return
	}

	img, err := l.LoadFinal(context.Background(), "IMG_0002", loader.DefaultParams(image.Pt(256, 256)))
	if err != nil {
		fmt.Println(err)
		return
	}
	provider.Wait()
	fmt.Println(img.Bounds().Dx(), l.Gate().Available())

	// Output:
	// 256 4
}

func ExampleLoader_LoadFinal_opportunistic() {
	l, err := loader.New(loadertest.NewProvider(), loader.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		return
	}

	params := loader.DefaultParams(image.Pt(128, 128))
	params.Delivery = loader.Opportunistic
	_, err = l.LoadFinal(context.Background(), "IMG_0003", params)
	fmt.Println(err)

	// Output:
	// loader: invalid delivery=opportunistic (streaming only) - use Load for opportunistic delivery
}
