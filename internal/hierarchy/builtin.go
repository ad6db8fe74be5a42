package hierarchy

// builtin covers the part of the JDK hierarchy a collection analysis
// keeps asking about, so plain projects never need a JDK on the
// classpath. Entries mirror the declarations in the JDK sources.
var builtin = map[string]classInfo{
	"java/lang/Object":     {},
	"java/lang/Cloneable":  {iface: true},
	"java/io/Serializable": {iface: true},

	// Core collection interfaces.
	"java/lang/Iterable":     {iface: true},
	"java/util/Collection":   {iface: true, interfaces: []string{"java/lang/Iterable"}},
	"java/util/List":         {iface: true, interfaces: []string{"java/util/Collection"}},
	"java/util/Set":          {iface: true, interfaces: []string{"java/util/Collection"}},
	"java/util/SortedSet":    {iface: true, interfaces: []string{"java/util/Set"}},
	"java/util/NavigableSet": {iface: true, interfaces: []string{"java/util/SortedSet"}},
	"java/util/Queue":        {iface: true, interfaces: []string{"java/util/Collection"}},
	"java/util/Deque":        {iface: true, interfaces: []string{"java/util/Queue"}},
	"java/util/RandomAccess": {iface: true},
	"java/util/Iterator":     {iface: true},
	"java/util/ListIterator": {iface: true, interfaces: []string{"java/util/Iterator"}},
	"java/util/Map":          {iface: true},
	"java/util/SortedMap":    {iface: true, interfaces: []string{"java/util/Map"}},
	"java/util/NavigableMap": {iface: true, interfaces: []string{"java/util/SortedMap"}},

	// Abstract skeletons.
	"java/util/AbstractCollection":     {super: "java/lang/Object", interfaces: []string{"java/util/Collection"}},
	"java/util/AbstractList":           {super: "java/util/AbstractCollection", interfaces: []string{"java/util/List"}},
	"java/util/AbstractSequentialList": {super: "java/util/AbstractList"},
	"java/util/AbstractSet":            {super: "java/util/AbstractCollection", interfaces: []string{"java/util/Set"}},
	"java/util/AbstractQueue":          {super: "java/util/AbstractCollection", interfaces: []string{"java/util/Queue"}},
	"java/util/AbstractMap":            {super: "java/lang/Object", interfaces: []string{"java/util/Map"}},
	"java/util/Dictionary":             {super: "java/lang/Object"},

	// Concrete collections.
	"java/util/ArrayList":     {super: "java/util/AbstractList", interfaces: []string{"java/util/List", "java/util/RandomAccess", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/LinkedList":    {super: "java/util/AbstractSequentialList", interfaces: []string{"java/util/List", "java/util/Deque", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/Vector":        {super: "java/util/AbstractList", interfaces: []string{"java/util/List", "java/util/RandomAccess", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/Stack":         {super: "java/util/Vector"},
	"java/util/HashSet":       {super: "java/util/AbstractSet", interfaces: []string{"java/util/Set", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/LinkedHashSet": {super: "java/util/HashSet", interfaces: []string{"java/util/Set", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/TreeSet":       {super: "java/util/AbstractSet", interfaces: []string{"java/util/NavigableSet", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/EnumSet":       {super: "java/util/AbstractSet", interfaces: []string{"java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/PriorityQueue": {super: "java/util/AbstractQueue", interfaces: []string{"java/io/Serializable"}},
	"java/util/ArrayDeque":    {super: "java/util/AbstractCollection", interfaces: []string{"java/util/Deque", "java/lang/Cloneable", "java/io/Serializable"}},

	// Concrete maps.
	"java/util/HashMap":       {super: "java/util/AbstractMap", interfaces: []string{"java/util/Map", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/LinkedHashMap": {super: "java/util/HashMap", interfaces: []string{"java/util/Map"}},
	"java/util/TreeMap":       {super: "java/util/AbstractMap", interfaces: []string{"java/util/NavigableMap", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/EnumMap":       {super: "java/util/AbstractMap", interfaces: []string{"java/io/Serializable", "java/lang/Cloneable"}},
	"java/util/Hashtable":     {super: "java/util/Dictionary", interfaces: []string{"java/util/Map", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/Properties":    {super: "java/util/Hashtable"},

	// java.util.concurrent.
	"java/util/concurrent/ConcurrentMap":         {iface: true, interfaces: []string{"java/util/Map"}},
	"java/util/concurrent/BlockingQueue":         {iface: true, interfaces: []string{"java/util/Queue"}},
	"java/util/concurrent/BlockingDeque":         {iface: true, interfaces: []string{"java/util/concurrent/BlockingQueue", "java/util/Deque"}},
	"java/util/concurrent/ConcurrentHashMap":     {super: "java/util/AbstractMap", interfaces: []string{"java/util/concurrent/ConcurrentMap", "java/io/Serializable"}},
	"java/util/concurrent/CopyOnWriteArrayList":  {super: "java/lang/Object", interfaces: []string{"java/util/List", "java/util/RandomAccess", "java/lang/Cloneable", "java/io/Serializable"}},
	"java/util/concurrent/CopyOnWriteArraySet":   {super: "java/util/AbstractSet", interfaces: []string{"java/io/Serializable"}},
	"java/util/concurrent/ConcurrentLinkedQueue": {super: "java/util/AbstractQueue", interfaces: []string{"java/util/Queue", "java/io/Serializable"}},
	"java/util/concurrent/LinkedBlockingQueue":   {super: "java/util/AbstractQueue", interfaces: []string{"java/util/concurrent/BlockingQueue", "java/io/Serializable"}},
	"java/util/concurrent/ArrayBlockingQueue":    {super: "java/util/AbstractQueue", interfaces: []string{"java/util/concurrent/BlockingQueue", "java/io/Serializable"}},
}
