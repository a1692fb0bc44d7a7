package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/memory"
)

var _ = Describe("Storage", func() {
	It("should read and write in single unit", func() {
		storage := memory.NewStorage(4096)
		Expect(storage.Write(0, []byte{1, 2, 3, 4})).To(Succeed())

		res, _ := storage.Read(0, 2)
		Expect(res).To(Equal([]byte{1, 2}))

		res, _ = storage.Read(1, 2)
		Expect(res).To(Equal([]byte{2, 3}))
	})

	It("should read and write across units", func() {
		storage := memory.NewStorage(8192)
		Expect(storage.Write(4094, []byte{1, 2, 3, 4})).To(Succeed())

		res, _ := storage.Read(4094, 4)
		Expect(res).To(Equal([]byte{1, 2, 3, 4}))
		Expect(storage.NumAllocatedPages()).To(Equal(2))
	})

	It("should read zeros without allocating", func() {
		storage := memory.NewStorage(8192)

		res, err := storage.Read(100, 8)
		Expect(err).To(BeNil())
		Expect(res).To(Equal(make([]byte, 8)))
		Expect(storage.NumAllocatedPages()).To(Equal(0))
	})

	It("should return error if accessing over the capacity", func() {
		storage := memory.NewStorage(4096)
		err := storage.Write(4096, []byte{1})
		Expect(err).To(MatchError(memory.ErrOutOfRange))

		_, err = storage.Read(4095, 2)
		Expect(err).To(MatchError(memory.ErrOutOfRange))
	})

	It("should read and write whole pages", func() {
		storage := memory.NewStorage(1 << 20)
		page := make([]byte, vm.PageSize)
		page[3] = 9

		Expect(storage.WritePage(0x2000, page)).To(Succeed())

		res, err := storage.ReadPage(0x2010)
		Expect(err).To(BeNil())
		Expect(res).To(Equal(page))

		Expect(storage.WritePage(0x2000, page[:10])).NotTo(Succeed())
	})
})
